package contracts

import (
	"fmt"
	"sort"

	"github.com/lmittmann/w3"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// Contract names as they appear in compiled artifacts.
const (
	AdminContract      = "CronosZkEVMAdmin"
	DenyListContract   = "TransactionFiltererDenyList"
	GettersContract    = "GettersFacet"
	MiddlewareContract = "BridgeMiddleware"
	ERC20Contract      = "ERC20"
)

// Method is one statically declared contract entrypoint.
type Method struct {
	Name      string
	Signature string
	View      bool
	fn        *w3.Func
}

func newMethod(name, signature, returns string, view bool) Method {
	return Method{Name: name, Signature: signature, View: view, fn: w3.MustNewFunc(signature, returns)}
}

// MethodSet is the capability set of one contract.
type MethodSet struct {
	contract string
	methods  map[string]Method
}

func newMethodSet(contract string, methods ...Method) MethodSet {
	set := MethodSet{contract: contract, methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		set.methods[m.Name] = m
	}
	return set
}

func (s MethodSet) Contract() string { return s.contract }

func (s MethodSet) Method(name string) (Method, error) {
	m, ok := s.methods[name]
	if !ok {
		return Method{}, clierr.New(clierr.CodeInternal, fmt.Sprintf("%s declares no method %q (known: %v)", s.contract, name, s.Methods()))
	}
	return m, nil
}

// Methods returns the method names sorted.
func (s MethodSet) Methods() []string {
	out := make([]string, 0, len(s.methods))
	for name := range s.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	adminSetPendingAdmin        = newMethod("setPendingAdmin", "setPendingAdmin(address newPendingAdmin)", "", false)
	adminAcceptAdmin            = newMethod("acceptAdmin", "acceptAdmin()", "", false)
	adminChangeFeeParams        = newMethod("changeFeeParams", "changeFeeParams((uint8 pubdataPricingMode, uint32 batchOverheadL1Gas, uint32 maxPubdataPerBatch, uint32 maxL2GasPerBatch, uint32 priorityTxMaxPubdata, uint64 minimalL2GasPrice) newFeeParams)", "", false)
	adminSetTokenMultiplier     = newMethod("setTokenMultiplier", "setTokenMultiplier(uint128 nominator, uint128 denominator)", "", false)
	adminSetTransactionFilterer = newMethod("setTransactionFilterer", "setTransactionFilterer(address transactionFilterer)", "", false)
	adminSetOracle              = newMethod("setOracle", "setOracle(address oracle)", "", false)

	denyListUpdate     = newMethod("updateDenyList", "updateDenyList(address[] addresses, bool add)", "", false)
	denyListIsAllowed  = newMethod("isTransactionAllowed", "isTransactionAllowed(address sender, address contractL2, uint256 mintValue, uint256 l2Value, bytes l2Calldata, address refundRecipient)", "bool", true)
	gettersGetAdmin    = newMethod("getAdmin", "getAdmin()", "address", true)
	gettersPendingAdmn = newMethod("getPendingAdmin", "getPendingAdmin()", "address", true)

	middlewareSetBridgeParameters = newMethod("setBridgeParameters", "setBridgeParameters(address bridgehub, address sharedBridge)", "", false)
	middlewareSetCronosZkEVM      = newMethod("setCronosZkEVM", "setCronosZkEVM(address cronosZkEVM)", "", false)
	middlewareSetChainParameters  = newMethod("setChainParameters", "setChainParameters(uint256 chainId, uint256 l2GasPerPubdata)", "", false)
	middlewareApproveToken        = newMethod("approveToken", "approveToken(address token, uint256 amount)", "", false)
	middlewareSetEthReceivers     = newMethod("setEthReceivers", "setEthReceivers(address[] receivers)", "", false)
	middlewareApprovalAndDeposit  = newMethod("approvalAndDeposit", "approvalAndDeposit(address destination, address token, uint256 amount, uint256 l2GasLimit)", "", false)
	middlewareDeposit             = newMethod("deposit", "deposit(address destination, address token, uint256 amount, uint256 l2GasLimit)", "", false)

	erc20Approve   = newMethod("approve", "approve(address spender, uint256 amount)", "bool", false)
	erc20Allowance = newMethod("allowance", "allowance(address owner, address spender)", "uint256", true)
)

var registry = map[string]MethodSet{
	AdminContract: newMethodSet(AdminContract,
		adminSetPendingAdmin,
		adminAcceptAdmin,
		adminChangeFeeParams,
		adminSetTokenMultiplier,
		adminSetTransactionFilterer,
		adminSetOracle,
	),
	DenyListContract: newMethodSet(DenyListContract, denyListUpdate, denyListIsAllowed),
	GettersContract:  newMethodSet(GettersContract, gettersGetAdmin, gettersPendingAdmn),
	MiddlewareContract: newMethodSet(MiddlewareContract,
		middlewareSetBridgeParameters,
		middlewareSetCronosZkEVM,
		middlewareSetChainParameters,
		middlewareApproveToken,
		middlewareSetEthReceivers,
		middlewareApprovalAndDeposit,
		middlewareDeposit,
	),
	ERC20Contract: newMethodSet(ERC20Contract, erc20Approve, erc20Allowance),
}

// Lookup returns the registered method set for a contract name.
func Lookup(name string) (MethodSet, error) {
	set, ok := registry[name]
	if !ok {
		return MethodSet{}, clierr.New(clierr.CodeUnknownContract, fmt.Sprintf("no interface registered for contract %q (known: %v)", name, Names()))
	}
	return set, nil
}

// Names lists registered contract names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
