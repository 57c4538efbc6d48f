package app

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	"github.com/zkevm-ops/zkadmin/internal/config"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	"github.com/zkevm-ops/zkadmin/internal/model"
	"github.com/zkevm-ops/zkadmin/internal/network"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testSigner = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	// returns 32 zero bytes for every call
	stubContract = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	// a second stub, so admin handover has distinct contracts
	otherStub = common.HexToAddress("0x00000000000000000000000000000000000b0b00")
	// reverts with empty data
	revertingContract = common.HexToAddress("0x0000000000000000000000000000000000000bad")

	userA = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	userB = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
)

// autoCommit mines a block after every accepted transaction.
type autoCommit struct {
	simulated.Client
	sim *simulated.Backend
}

func (a autoCommit) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := a.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	a.sim.Commit()
	return nil
}

type testEnv struct {
	t      *testing.T
	sim    *simulated.Backend
	runner *Runner
	stdout bytes.Buffer
	stderr bytes.Buffer
	dir    string
	dials  int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvRPCURL, "")
	t.Setenv(config.EnvNetwork, "")
	for _, key := range config.DomainEnvKeys {
		t.Setenv(key, "")
	}

	funds, _ := new(big.Int).SetString("1000000000000000000000", 10)
	stub := common.FromHex("0x60206000f3")
	sim := simulated.NewBackend(types.GenesisAlloc{
		testSigner:        {Balance: funds},
		stubContract:      {Code: stub, Balance: new(big.Int)},
		otherStub:         {Code: stub, Balance: new(big.Int)},
		revertingContract: {Code: common.FromHex("0x60006000fd"), Balance: new(big.Int)},
	})
	t.Cleanup(func() { _ = sim.Close() })

	env := &testEnv{t: t, sim: sim, dir: t.TempDir()}
	env.runner = NewRunnerWithWriters(&env.stdout, &env.stderr)
	env.runner.dial = func(ctx context.Context, cfg network.Config) (*network.Connection, error) {
		env.dials++
		return network.NewConnection(ctx, network.Config{Name: cfg.Name, PollInterval: 5 * time.Millisecond}, autoCommit{Client: sim.Client(), sim: sim})
	}
	return env
}

func (e *testEnv) run(args ...string) int {
	e.stdout.Reset()
	e.stderr.Reset()
	base := []string{
		"--config", filepath.Join(e.dir, "missing.yaml"),
		"--env-file", filepath.Join(e.dir, "missing.env"),
		"--lock-dir", filepath.Join(e.dir, "locks"),
		"--rpc-url", "simulated",
		"--network", "hardhat",
	}
	return e.runner.Run(append(args, base...))
}

func (e *testEnv) nonce() uint64 {
	e.t.Helper()
	n, err := e.sim.Client().NonceAt(context.Background(), testSigner, nil)
	if err != nil {
		e.t.Fatalf("read nonce: %v", err)
	}
	return n
}

type stepOut struct {
	Index           int             `json:"index"`
	Method          string          `json:"method"`
	Contract        string          `json:"contract"`
	Args            []string        `json:"args"`
	Batch           string          `json:"batch"`
	Status          string          `json:"status"`
	TxHash          string          `json:"tx_hash"`
	ContractAddress string          `json:"contract_address"`
	Error           string          `json:"error"`
	Result          json.RawMessage `json:"result"`
}

type operationOut struct {
	Command string          `json:"command"`
	Status  string          `json:"status"`
	Signer  string          `json:"signer"`
	ChainID string          `json:"chain_id"`
	Steps   []stepOut       `json:"steps"`
	Result  json.RawMessage `json:"result"`
}

func decodeOperation(t *testing.T, raw []byte) operationOut {
	t.Helper()
	var op operationOut
	if err := json.Unmarshal(raw, &op); err != nil {
		t.Fatalf("decode operation: %v\n%s", err, raw)
	}
	return op
}

type errorEnvelope struct {
	Success bool            `json:"success"`
	Error   model.ErrorBody `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// decodeErrorEnvelope skips the signer announcement and log lines that
// precede the envelope on stderr.
func decodeErrorEnvelope(t *testing.T, stderr string) errorEnvelope {
	t.Helper()
	start := strings.Index(stderr, "{\n  \"version\"")
	if start < 0 {
		t.Fatalf("no error envelope in stderr:\n%s", stderr)
	}
	var env errorEnvelope
	if err := json.NewDecoder(strings.NewReader(stderr[start:])).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v\n%s", err, stderr)
	}
	return env
}

func statuses(op operationOut) []string {
	out := make([]string, 0, len(op.Steps))
	for _, step := range op.Steps {
		out = append(out, step.Status)
	}
	return out
}

func TestTrimRootPath(t *testing.T) {
	if got := trimRootPath("zkadmin denylist update"); got != "denylist update" {
		t.Fatalf("unexpected trim result: %s", got)
	}
}

func TestDenyListUpdateAddsThenReportsNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	list := userA.Hex() + "," + userB.Hex()
	code := env.run("denylist", "update", "--list", list, "--contract", stubContract.Hex(), "--private-key", testPrivateKey, "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	if !strings.Contains(env.stderr.String(), "using signer "+testSigner.Hex()) {
		t.Fatalf("signer was not announced: %s", env.stderr.String())
	}

	op := decodeOperation(t, env.stdout.Bytes())
	if op.Status != "completed" || len(op.Steps) != 3 {
		t.Fatalf("unexpected operation: %+v", op)
	}
	update := op.Steps[0]
	if update.Method != "updateDenyList" || update.Status != "confirmed" {
		t.Fatalf("unexpected update step: %+v", update)
	}
	wantList := "[" + codec.FormatAddressList([]common.Address{userA, userB}) + "]"
	if len(update.Args) != 2 || update.Args[0] != wantList || update.Args[1] != "true" {
		t.Fatalf("unexpected update args: %v", update.Args)
	}

	var checks []model.AllowanceCheck
	if err := json.Unmarshal(op.Result, &checks); err != nil {
		t.Fatalf("decode checks: %v", err)
	}
	if len(checks) != 2 || checks[0].Address != userA.Hex() || checks[1].Address != userB.Hex() {
		t.Fatalf("unexpected checks: %+v", checks)
	}
	for _, c := range checks {
		if c.Allowed || c.Verdict != "not allowed" {
			t.Fatalf("expected %s to be reported as not allowed, got %+v", c.Address, c)
		}
	}
	for _, step := range op.Steps[1:] {
		if step.Method != "isTransactionAllowed" || step.Status != "confirmed" {
			t.Fatalf("unexpected check step: %+v", step)
		}
	}
	if env.nonce() != 1 {
		t.Fatalf("expected one transaction, nonce is %d", env.nonce())
	}
}

func TestFeeParamsSendsStructVerbatimInOneCall(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("admin", "fee-params", "--admin-contract", stubContract.Hex(), "--minimal-l2-gas-price", "500000000000", "--private-key", testPrivateKey, "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, env.stdout.Bytes())
	if len(op.Steps) != 1 || op.Steps[0].Method != "changeFeeParams" || op.Steps[0].Status != "confirmed" {
		t.Fatalf("unexpected steps: %+v", op.Steps)
	}
	if env.nonce() != 1 {
		t.Fatalf("expected exactly one transaction, nonce is %d", env.nonce())
	}

	tx, _, err := env.sim.Client().TransactionByHash(context.Background(), common.HexToHash(op.Steps[0].TxHash))
	if err != nil {
		t.Fatalf("fetch tx: %v", err)
	}
	admin, err := contracts.NewBinder(nil, nil).Admin(stubContract.Hex())
	if err != nil {
		t.Fatalf("bind admin: %v", err)
	}
	want, err := admin.Calldata("changeFeeParams", contracts.FeeParams{
		PubdataPricingMode:   1,
		BatchOverheadL1Gas:   750000,
		MaxPubdataPerBatch:   1000000,
		MaxL2GasPerBatch:     80000000,
		PriorityTxMaxPubdata: 1000000,
		MinimalL2GasPrice:    500000000000,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(tx.Data(), want) {
		t.Fatalf("unexpected calldata:\n got %x\nwant %x", tx.Data(), want)
	}
	last := new(big.Int).SetBytes(tx.Data()[len(tx.Data())-32:])
	if last.Cmp(big.NewInt(500000000000)) != 0 {
		t.Fatalf("minimal gas price was converted: %s", last)
	}
}

func TestMissingRequiredFlagsAreAllReported(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("denylist", "update", "--private-key", testPrivateKey)
	if code != 25 {
		t.Fatalf("expected exit 25, got %d stderr=%s", code, env.stderr.String())
	}
	envelope := decodeErrorEnvelope(t, env.stderr.String())
	if envelope.Success || envelope.Error.Type != "missing_required_flag" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	fields := strings.Join(envelope.Error.Fields, " ")
	if fields != "--list --contract" {
		t.Fatalf("expected both missing flags, got %q", fields)
	}
	if env.dials != 0 {
		t.Fatal("validation failure must not touch the network")
	}
}

func TestEnvDefaultsSatisfyRequiredFlags(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("CONTRACTS_DENYLIST_ADDR", stubContract.Hex())
	code := env.run("denylist", "check", "--list", userA.Hex(), "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, env.stdout.Bytes())
	if len(op.Steps) != 1 || op.Steps[0].Contract != contracts.DenyListContract {
		t.Fatalf("unexpected steps: %+v", op.Steps)
	}
	if strings.Contains(env.stderr.String(), "using signer") {
		t.Fatal("read-only command must not resolve a signer")
	}
}

func TestDebugLogRecordsInputSources(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("CRONOSZKEVM_ADMIN_ADDRESS", stubContract.Hex())
	code := env.run("admin", "set-oracle", "--oracle", userA.Hex(), "--private-key", testPrivateKey, "--log-level", "debug")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	stderr := env.stderr.String()
	for _, want := range []string{
		"msg=input flag=admin-contract value=" + stubContract.Hex() + " source=env",
		"msg=input flag=oracle value=" + userA.Hex() + " source=flag",
	} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("missing %q in log:\n%s", want, stderr)
		}
	}
	if strings.Contains(stderr, strings.TrimPrefix(testPrivateKey, "0x")) {
		t.Fatal("private key leaked into the log")
	}
}

func TestFailedStepAbortsTheRest(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("middleware", "deposit",
		"--middleware", stubContract.Hex(),
		"--token", otherStub.Hex(),
		"--destination", userA.Hex(),
		"--private-key", testPrivateKey,
	)
	if code != 30 {
		t.Fatalf("expected exit 30, got %d stderr=%s", code, env.stderr.String())
	}
	envelope := decodeErrorEnvelope(t, env.stderr.String())
	if envelope.Error.Type != "step_failed" || !strings.Contains(envelope.Error.Message, "step 2/3") {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}
	op := decodeOperation(t, envelope.Data)
	got := strings.Join(statuses(op), ",")
	if got != "confirmed,failed,aborted" || op.Status != "aborted" {
		t.Fatalf("unexpected statuses %s (%s)", got, op.Status)
	}
	if op.Steps[0].Method != "approve" || op.Steps[2].TxHash != "" {
		t.Fatalf("unexpected steps: %+v", op.Steps)
	}
	if !strings.Contains(op.Steps[1].Error, "allowance 0 is below the deposit amount 1") {
		t.Fatalf("allowance should be reported in token units: %q", op.Steps[1].Error)
	}
	if env.nonce() != 1 {
		t.Fatalf("deposit must not be sent, nonce is %d", env.nonce())
	}
}

func TestRevertingCallFailsBeforeBroadcast(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("admin", "set-oracle", "--admin-contract", revertingContract.Hex(), "--oracle", userA.Hex(), "--private-key", testPrivateKey)
	if code != 30 {
		t.Fatalf("expected exit 30, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, decodeErrorEnvelope(t, env.stderr.String()).Data)
	if len(op.Steps) != 1 || op.Steps[0].Status != "failed" || op.Steps[0].Error == "" {
		t.Fatalf("unexpected steps: %+v", op.Steps)
	}
	if env.nonce() != 0 {
		t.Fatalf("reverting call was broadcast, nonce is %d", env.nonce())
	}
}

func TestAdminChangeVerifiesReadBack(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("admin", "change",
		"--admin-contract", stubContract.Hex(),
		"--new-admin-contract", otherStub.Hex(),
		"--diamond-proxy", stubContract.Hex(),
		"--private-key", testPrivateKey,
	)
	// The stub proxy reports the zero address as admin.
	if code != 30 {
		t.Fatalf("expected exit 30, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, decodeErrorEnvelope(t, env.stderr.String()).Data)
	if got := strings.Join(statuses(op), ","); got != "confirmed,confirmed,failed" {
		t.Fatalf("unexpected statuses %s", got)
	}
	if op.Steps[0].Method != "setPendingAdmin" || op.Steps[1].Method != "acceptAdmin" || op.Steps[2].Method != "getAdmin" {
		t.Fatalf("unexpected order: %+v", op.Steps)
	}
	if !strings.Contains(op.Steps[2].Error, "expected "+otherStub.Hex()) {
		t.Fatalf("unexpected read-back error: %s", op.Steps[2].Error)
	}
}

func TestMiddlewareWiringReusesDeployedContract(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("middleware", "deploy",
		"--middleware", stubContract.Hex(),
		"--bridgehub", userA.Hex(),
		"--shared-bridge", userB.Hex(),
		"--diamond-proxy", otherStub.Hex(),
		"--chain-id", "388",
		"--commit-operator", userA.Hex(),
		"--blobs-operator", userB.Hex(),
		"--private-key", testPrivateKey,
		"--results-only",
	)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, env.stdout.Bytes())
	methods := make([]string, 0, len(op.Steps))
	for _, step := range op.Steps {
		if step.Batch != wiringBatch || step.Status != "confirmed" {
			t.Fatalf("unexpected wiring step: %+v", step)
		}
		methods = append(methods, step.Method)
	}
	want := "setBridgeParameters,setCronosZkEVM,setChainParameters,approveToken,setEthReceivers"
	if got := strings.Join(methods, ","); got != want {
		t.Fatalf("unexpected methods %s", got)
	}
	if op.Steps[3].Args[1] != "1000000000000000000000000" {
		t.Fatalf("token allowance not scaled: %v", op.Steps[3].Args)
	}
	if env.nonce() != 5 {
		t.Fatalf("expected five transactions, nonce is %d", env.nonce())
	}
}

func TestDenyListDeployFromArtifact(t *testing.T) {
	env := newTestEnv(t)
	artifacts := filepath.Join(env.dir, "artifacts", "contracts")
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		t.Fatal(err)
	}
	artifact := `{
  "contractName": "TransactionFiltererDenyList",
  "abi": [{"type": "constructor", "stateMutability": "nonpayable", "inputs": [{"name": "owner", "type": "address"}, {"name": "denyList", "type": "address[]"}]}],
  "bytecode": "0x6005600c60003960056000f360206000f3"
}`
	if err := os.WriteFile(filepath.Join(artifacts, "TransactionFiltererDenyList.json"), []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}

	code := env.run("denylist", "deploy", "--list", userA.Hex(), "--artifacts", filepath.Join(env.dir, "artifacts"), "--private-key", testPrivateKey, "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	op := decodeOperation(t, env.stdout.Bytes())
	if len(op.Steps) != 1 || op.Steps[0].ContractAddress == "" {
		t.Fatalf("unexpected steps: %+v", op.Steps)
	}
	if op.Steps[0].Args[0] != testSigner.Hex() {
		t.Fatalf("deployer should own the deny-list: %v", op.Steps[0].Args)
	}
	var deployed model.Deployment
	if err := json.Unmarshal(op.Result, &deployed); err != nil {
		t.Fatalf("decode deployment result: %v", err)
	}
	if deployed.Contract != contracts.DenyListContract || deployed.Address != op.Steps[0].ContractAddress || deployed.TxHash != op.Steps[0].TxHash {
		t.Fatalf("unexpected deployment result: %+v", deployed)
	}
	code2, err := env.sim.Client().CodeAt(context.Background(), common.HexToAddress(op.Steps[0].ContractAddress), nil)
	if err != nil {
		t.Fatalf("read code: %v", err)
	}
	if !bytes.Equal(code2, common.FromHex("0x60206000f3")) {
		t.Fatalf("unexpected deployed code %x", code2)
	}
}

func TestDeployChecksConstructorArgumentCount(t *testing.T) {
	env := newTestEnv(t)
	artifacts := filepath.Join(env.dir, "artifacts")
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		t.Fatal(err)
	}
	artifact := `{
  "contractName": "Vault",
  "abi": [{"type": "constructor", "stateMutability": "nonpayable", "inputs": [{"name": "owner", "type": "address"}]}],
  "bytecode": "0x6005600c60003960056000f360206000f3"
}`
	if err := os.WriteFile(filepath.Join(artifacts, "Vault.json"), []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}

	code := env.run("deploy", "--contract", "Vault", "--args", userA.Hex()+","+userB.Hex(), "--artifacts", artifacts, "--private-key", testPrivateKey)
	if code != 2 {
		t.Fatalf("expected exit 2, got %d stderr=%s", code, env.stderr.String())
	}
	envelope := decodeErrorEnvelope(t, env.stderr.String())
	if !strings.Contains(envelope.Error.Message, "takes 1 arguments, got 2") || len(envelope.Error.Fields) != 1 || envelope.Error.Fields[0] != "--args" {
		t.Fatalf("unexpected error: %+v", envelope.Error)
	}
	if env.dials != 0 {
		t.Fatal("argument count must be checked before dialing")
	}
}

func TestMissingArtifactFailsBeforeConnecting(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("denylist", "deploy", "--artifacts", filepath.Join(env.dir, "nothing"), "--private-key", testPrivateKey)
	if code != 29 {
		t.Fatalf("expected exit 29, got %d stderr=%s", code, env.stderr.String())
	}
	if env.dials != 0 {
		t.Fatal("missing artifact must be reported before dialing")
	}
}

func TestDryRunReportsPlanWithoutConnecting(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("denylist", "update", "--list", userA.Hex(), "--contract", stubContract.Hex(), "--remove", "--private-key", testPrivateKey, "--dry-run")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	var envelope struct {
		Data operationOut       `json:"data"`
		Meta model.EnvelopeMeta `json:"meta"`
	}
	if err := json.Unmarshal(env.stdout.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Meta.DryRun || envelope.Meta.Signer != testSigner.Hex() {
		t.Fatalf("unexpected meta: %+v", envelope.Meta)
	}
	if got := strings.Join(statuses(envelope.Data), ","); got != "pending,pending" {
		t.Fatalf("unexpected statuses %s", got)
	}
	if envelope.Data.Steps[0].Args[1] != "false" {
		t.Fatalf("--remove should send add=false: %v", envelope.Data.Steps[0].Args)
	}
	if env.dials != 0 {
		t.Fatal("dry run must not dial")
	}
}

func TestUnknownFlagIsRejected(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("denylist", "check", "--bogus", "x")
	if code != 26 {
		t.Fatalf("expected exit 26, got %d stderr=%s", code, env.stderr.String())
	}
	envelope := decodeErrorEnvelope(t, env.stderr.String())
	if len(envelope.Error.Fields) != 1 || envelope.Error.Fields[0] != "--bogus" {
		t.Fatalf("unexpected fields: %v", envelope.Error.Fields)
	}
}

func TestUnknownEnumValue(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("admin", "fee-params", "--admin-contract", stubContract.Hex(), "--pubdata-pricing-mode", "Volition", "--private-key", testPrivateKey)
	if code != 28 {
		t.Fatalf("expected exit 28, got %d stderr=%s", code, env.stderr.String())
	}
}

func TestMissingCredential(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("admin", "set-oracle", "--admin-contract", stubContract.Hex(), "--oracle", userA.Hex())
	if code != 20 {
		t.Fatalf("expected exit 20, got %d stderr=%s", code, env.stderr.String())
	}
	if !strings.Contains(env.stderr.String(), "ADMIN_MNEMONIC") {
		t.Fatalf("expected the role default to be named: %s", env.stderr.String())
	}
}

func TestMissingRPCURL(t *testing.T) {
	env := newTestEnv(t)
	env.runner.dial = network.Dial
	code := env.runner.Run([]string{
		"admin", "show", "--diamond-proxy", stubContract.Hex(),
		"--config", filepath.Join(env.dir, "missing.yaml"),
		"--env-file", filepath.Join(env.dir, "missing.env"),
	})
	if code != 21 {
		t.Fatalf("expected exit 21, got %d stderr=%s", code, env.stderr.String())
	}
}

func TestErrorEnvelopeIgnoresResultsOnly(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("denylist", "update", "--enable-commands", "denylist check", "--results-only")
	if code != 16 {
		t.Fatalf("expected exit 16, got %d stderr=%s", code, env.stderr.String())
	}
	envelope := decodeErrorEnvelope(t, env.stderr.String())
	if envelope.Success || envelope.Error.Type != "command_blocked" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestSchemaDescribesRegistryFlags(t *testing.T) {
	env := newTestEnv(t)
	code := env.run("schema", "denylist update", "--results-only")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d stderr=%s", code, env.stderr.String())
	}
	var out struct {
		Role  string `json:"role"`
		Flags []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Required bool   `json:"required"`
			Env      string `json:"env"`
		} `json:"flags"`
	}
	if err := json.Unmarshal(env.stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if out.Role != "deployer" {
		t.Fatalf("unexpected role %q", out.Role)
	}
	seen := map[string]bool{}
	for _, f := range out.Flags {
		seen[f.Name] = true
		if f.Name == "contract" && (!f.Required || f.Env != "CONTRACTS_DENYLIST_ADDR" || f.Type != "address") {
			t.Fatalf("unexpected contract flag: %+v", f)
		}
	}
	for _, name := range []string{"list", "contract", "remove", "private-key", "mnemonic", "derivation-path"} {
		if !seen[name] {
			t.Fatalf("schema is missing --%s", name)
		}
	}
}
