package app

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/identity"
)

// Flag names shared by several commands.
const (
	flagAdminContract = "admin-contract"
	flagDiamondProxy  = "diamond-proxy"
	flagContract      = "contract"
	flagList          = "list"
	flagMiddleware    = "middleware"
	flagToken         = "token"
	flagAmount        = "amount"
)

// Environment defaults for address flags.
const (
	envAdmin        = "CRONOSZKEVM_ADMIN_ADDRESS"
	envNewAdmin     = "NEW_CRONOSZKEVM_ADMIN_ADDRESS"
	envDiamondProxy = "CONTRACTS_DIAMOND_PROXY_ADDR"
	envBridgehub    = "CONTRACTS_BRIDGEHUB_PROXY_ADDR"
	envSharedBridge = "CONTRACTS_L1_SHARED_BRIDGE_PROXY_ADDR"
	envChainID      = "CHAIN_ETH_ZKSYNC_NETWORK_ID"
	envMiddleware   = "CONTRACTS_MIDDLEWARE_ADDR"
	envDenyList     = "CONTRACTS_DENYLIST_ADDR"
	envCommitOp     = "ETH_SENDER_SENDER_OPERATOR_COMMIT_ETH_ADDR"
	envBlobsOp      = "ETH_SENDER_SENDER_OPERATOR_BLOBS_ETH_ADDR"
)

// defaultBridgeToken is the base token the middleware is provisioned with.
const defaultBridgeToken = "0x49cE7551514f3c2Bf44B50442765Bb112d0e8204"

func (s *runtimeState) newRegistry() (*command.Registry, error) {
	adminContract := command.Flag{Name: flagAdminContract, Kind: command.KindAddress, Required: true, Env: envAdmin, Usage: "Chain admin contract address"}
	diamondProxy := command.Flag{Name: flagDiamondProxy, Kind: command.KindAddress, Required: true, Env: envDiamondProxy, Usage: "Diamond proxy address"}

	return command.NewRegistry(
		s.operation(command.Command{
			Path:  []string{"deploy"},
			Short: "Deploy a compiled contract by name",
			Role:  identity.RoleDeployer,
			Flags: []command.Flag{
				{Name: flagContract, Kind: command.KindString, Required: true, Usage: "Contract name; its artifact is looked up under --artifacts"},
				{Name: "args", Kind: command.KindAddressList, Usage: "Constructor addresses (comma-separated)"},
			},
		}, s.planDeploy),

		s.operation(command.Command{
			Path:  []string{"admin", "deploy"},
			Short: "Deploy the chain admin contract",
			Role:  identity.RoleAdmin,
			Flags: []command.Flag{
				diamondProxy,
				{Name: "admin", Kind: command.KindAddress, Usage: "Initial admin (default: the signer)"},
			},
		}, s.planAdminDeploy),
		s.operation(command.Command{
			Path:  []string{"admin", "change"},
			Short: "Hand the diamond proxy over to a new admin contract",
			Role:  identity.RoleAdmin,
			Flags: []command.Flag{
				adminContract,
				{Name: "new-admin-contract", Kind: command.KindAddress, Required: true, Env: envNewAdmin, Usage: "Admin contract taking over"},
				diamondProxy,
			},
		}, s.planAdminChange),
		s.operation(command.Command{
			Path:  []string{"admin", "fee-params"},
			Short: "Change the chain fee parameters",
			Role:  identity.RoleAdmin,
			Flags: []command.Flag{
				adminContract,
				{Name: "pubdata-pricing-mode", Kind: command.KindEnum, Enum: &codec.PubdataPricingMode, Default: "Validium", Usage: "Pubdata pricing mode"},
				{Name: "batch-overhead-l1-gas", Kind: command.KindUint, Bits: 32, Default: "750000", Usage: "Batch overhead in L1 gas"},
				{Name: "max-pubdata-per-batch", Kind: command.KindUint, Bits: 32, Default: "1000000", Usage: "Maximum pubdata per batch"},
				{Name: "max-l2-gas-per-batch", Kind: command.KindUint, Bits: 32, Default: "80000000", Usage: "Maximum L2 gas per batch"},
				{Name: "priority-tx-max-pubdata", Kind: command.KindUint, Bits: 32, Default: "1000000", Usage: "Maximum pubdata of a priority transaction"},
				{Name: "minimal-l2-gas-price", Kind: command.KindUint, Bits: 64, Default: "500000000000", Usage: "Minimal L2 gas price in wei"},
			},
		}, s.planFeeParams),
		s.operation(command.Command{
			Path:  []string{"admin", "token-multiplier"},
			Short: "Set the base token price multiplier",
			Role:  identity.RoleOracle,
			Flags: []command.Flag{
				adminContract,
				{Name: "nominator", Kind: command.KindBigUint, Default: "40000", Usage: "Multiplier nominator"},
				{Name: "denominator", Kind: command.KindBigUint, Default: "1", Usage: "Multiplier denominator"},
			},
		}, s.planTokenMultiplier),
		s.operation(command.Command{
			Path:  []string{"admin", "set-oracle"},
			Short: "Set the token multiplier oracle",
			Role:  identity.RoleAdmin,
			Flags: []command.Flag{
				adminContract,
				{Name: "oracle", Kind: command.KindAddress, Required: true, Usage: "Oracle address"},
			},
		}, s.planSetOracle),
		s.operation(command.Command{
			Path:  []string{"admin", "set-filterer"},
			Short: "Set the transaction filterer",
			Role:  identity.RoleAdmin,
			Flags: []command.Flag{
				adminContract,
				{Name: "filterer", Kind: command.KindAddress, Required: true, Env: envDenyList, Usage: "Transaction filterer (deny-list) address"},
			},
		}, s.planSetFilterer),
		s.operation(command.Command{
			Path:  []string{"admin", "show"},
			Short: "Read the current and pending admin of the diamond proxy",
			Flags: []command.Flag{diamondProxy},
		}, s.planAdminShow),

		s.operation(command.Command{
			Path:  []string{"denylist", "deploy"},
			Short: "Deploy the deny-list transaction filterer",
			Role:  identity.RoleDeployer,
			Flags: []command.Flag{
				{Name: flagList, Kind: command.KindAddressList, Usage: "Initially denied addresses (comma-separated)"},
			},
		}, s.planDenyListDeploy),
		s.operation(command.Command{
			Path:  []string{"denylist", "update"},
			Short: "Add addresses to, or remove them from, the deny-list",
			Role:  identity.RoleDeployer,
			Flags: []command.Flag{
				{Name: flagList, Kind: command.KindAddressList, Required: true, Usage: "Addresses to update (comma-separated)"},
				{Name: flagContract, Kind: command.KindAddress, Required: true, Env: envDenyList, Usage: "Deny-list contract address"},
				{Name: "remove", Kind: command.KindBool, Usage: "Remove the addresses instead of adding them"},
			},
		}, s.planDenyListUpdate),
		s.operation(command.Command{
			Path:  []string{"denylist", "check"},
			Short: "Check whether addresses may submit transactions",
			Flags: []command.Flag{
				{Name: flagList, Kind: command.KindAddressList, Required: true, Usage: "Addresses to check (comma-separated)"},
				{Name: flagContract, Kind: command.KindAddress, Required: true, Env: envDenyList, Usage: "Deny-list contract address"},
			},
		}, s.planDenyListCheck),

		s.operation(command.Command{
			Path:  []string{"middleware", "deploy"},
			Short: "Deploy the bridge middleware and wire it to the chain",
			Role:  identity.RoleMiddleware,
			Flags: []command.Flag{
				{Name: "bridgehub", Kind: command.KindAddress, Required: true, Env: envBridgehub, Usage: "Bridgehub proxy address"},
				{Name: "shared-bridge", Kind: command.KindAddress, Required: true, Env: envSharedBridge, Usage: "L1 shared bridge proxy address"},
				diamondProxy,
				{Name: "chain-id", Kind: command.KindBigUint, Required: true, Env: envChainID, Usage: "L2 chain id"},
				{Name: "l2-gas-per-pubdata", Kind: command.KindBigUint, Default: "800", Usage: "Required L2 gas per pubdata byte"},
				{Name: flagToken, Kind: command.KindAddress, Default: defaultBridgeToken, Usage: "Token the middleware may spend"},
				{Name: "token-allowance", Kind: command.KindAmount, Default: "1000000", Usage: "Token allowance in whole tokens"},
				{Name: "commit-operator", Kind: command.KindAddress, Required: true, Env: envCommitOp, Usage: "Commit operator ETH receiver"},
				{Name: "blobs-operator", Kind: command.KindAddress, Required: true, Env: envBlobsOp, Usage: "Blobs operator ETH receiver"},
				{Name: flagMiddleware, Kind: command.KindAddress, Usage: "Already deployed middleware; skips the deployment"},
			},
		}, s.planMiddlewareDeploy),
		s.operation(command.Command{
			Path:  []string{"middleware", "approve-token"},
			Short: "Let the middleware spend a token",
			Role:  identity.RoleMiddleware,
			Flags: []command.Flag{
				{Name: flagMiddleware, Kind: command.KindAddress, Required: true, Env: envMiddleware, Usage: "Middleware address"},
				{Name: flagToken, Kind: command.KindAddress, Required: true, Usage: "Token address"},
				{Name: flagAmount, Kind: command.KindAmount, Required: true, Usage: "Allowance in whole tokens"},
			},
		}, s.planApproveToken),
		s.operation(command.Command{
			Path:  []string{"middleware", "deposit"},
			Short: "Approve a token and deposit it through the middleware",
			Role:  identity.RoleMiddleware,
			Flags: []command.Flag{
				{Name: flagMiddleware, Kind: command.KindAddress, Required: true, Env: envMiddleware, Usage: "Middleware address"},
				{Name: flagToken, Kind: command.KindAddress, Required: true, Usage: "Token to deposit"},
				{Name: "destination", Kind: command.KindAddress, Required: true, Usage: "L2 recipient"},
				{Name: flagAmount, Kind: command.KindAmount, Default: "1", Usage: "Amount in whole tokens"},
				{Name: "l2-gas-limit", Kind: command.KindBigUint, Default: "2000000", Usage: "L2 gas limit"},
				{Name: "fee", Kind: command.KindAmount, Default: "0.001", Usage: "Bridge fee in ETH, sent as value"},
				{Name: "method", Kind: command.KindEnum, Enum: &codec.DepositMethod, Default: "approvalAndDeposit", Usage: "Middleware deposit entrypoint"},
			},
		}, s.planDeposit),
	)
}

func call(contract string, target common.Address, method string, args ...any) execution.Call {
	return execution.Call{Contract: contract, Target: target.Hex(), Method: method, Args: formatArgs(args)}
}

func formatArgs(args []any) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		out = append(out, formatArg(arg))
	}
	return out
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case common.Address:
		return v.Hex()
	case []common.Address:
		return "[" + codec.FormatAddressList(v) + "]"
	case *big.Int:
		if v == nil {
			return "0"
		}
		return v.String()
	case contracts.FeeParams:
		return fmt.Sprintf("{pubdataPricingMode: %s, batchOverheadL1Gas: %d, maxPubdataPerBatch: %d, maxL2GasPerBatch: %d, priorityTxMaxPubdata: %d, minimalL2GasPrice: %d}",
			codec.PubdataPricingMode.Name(v.PubdataPricingMode), v.BatchOverheadL1Gas, v.MaxPubdataPerBatch, v.MaxL2GasPerBatch, v.PriorityTxMaxPubdata, v.MinimalL2GasPrice)
	case []byte:
		if len(v) == 0 {
			return `""`
		}
		return "0x" + common.Bytes2Hex(v)
	}
	return strings.TrimSpace(fmt.Sprint(arg))
}
