package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int      `json:"code"`
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Network   string    `json:"network,omitempty"`
	ChainID   string    `json:"chain_id,omitempty"`
	Signer    string    `json:"signer,omitempty"`
	DryRun    bool      `json:"dry_run,omitempty"`
}

// AllowanceCheck is the deny-list verdict for one address.
type AllowanceCheck struct {
	Address string `json:"address"`
	Allowed bool   `json:"allowed"`
	Verdict string `json:"verdict"`
}

// AdminState is read from the diamond proxy getters.
type AdminState struct {
	DiamondProxy string `json:"diamond_proxy"`
	Admin        string `json:"admin"`
	PendingAdmin string `json:"pending_admin"`
}

// TokenAllowance is an ERC-20 allowance read-back.
type TokenAllowance struct {
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
	Required  string `json:"required,omitempty"`
}

// Deployment records a contract created by the operation.
type Deployment struct {
	Contract string `json:"contract"`
	Address  string `json:"address"`
	TxHash   string `json:"tx_hash"`
}
