package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
)

var (
	// ErrTxFailed covers every non-success outcome of a submitted
	// transaction: transport errors, receipt timeouts and reverted receipts
	// all look the same to the caller.
	ErrTxFailed = errors.New("ledger transaction failed")

	ErrLedgerRead = errors.New("ledger read failed")

	ErrInvalidKey = errors.New("invalid private key")
)

const DefaultTxTimeout = 1 * time.Minute

// Receipt is the confirmation of a successfully mined transaction. Failed
// transactions are returned as errors, never as receipts.
type Receipt struct {
	TxHash          string
	ContractAddress string
	GasUsed         uint64
	BlockNumber     uint64
}

type DeployTerms struct {
	Tenant        string
	RentAmount    *big.Int
	DepositAmount *big.Int
	StartDate     time.Time
	EndDate       time.Time
}

// RentalEthereum is the only component that talks to the ledger network.
type RentalEthereum struct {
	// config
	legacyTx  bool // use legacy transaction fee, for local node testing
	txTimeout time.Duration

	// state
	nonces map[common.Address]uint64 // highest nonce handed out per sender
	mutex  sync.Mutex
	abi    abi.ABI

	// deps
	bytecode []byte
	client   EthereumClient
	log      interfaces.ILogger
}

func NewRentalEthereum(client EthereumClient, bytecodeHex string, log interfaces.ILogger) *RentalEthereum {
	return &RentalEthereum{
		abi:       rentalABI,
		bytecode:  common.FromHex(strings.TrimSpace(bytecodeHex)),
		client:    client,
		nonces:    make(map[common.Address]uint64),
		txTimeout: DefaultTxTimeout,
		log:       log,
	}
}

func (g *RentalEthereum) SetLegacyTx(legacyTx bool) {
	g.legacyTx = legacyTx
}

func (g *RentalEthereum) SetTxTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.txTimeout = timeout
	}
}

func (g *RentalEthereum) GetClient() EthereumClient {
	return g.client
}

// DeriveAccount resolves the account address controlled by the given private
// key without touching the network.
func (g *RentalEthereum) DeriveAccount(privKey string) (string, error) {
	addr, err := lib.PrivKeyStringToAddr(privKey)
	if err != nil {
		return "", lib.WrapError(ErrInvalidKey, err)
	}
	return addr.Hex(), nil
}

// DeployRentalContract deploys a new ledger-side agreement instance with the
// terms encoded as constructor arguments and waits for the receipt.
func (g *RentalEthereum) DeployRentalContract(ctx context.Context, terms DeployTerms, privKey string) (*Receipt, error) {
	if len(g.bytecode) == 0 {
		return nil, lib.WrapError(ErrTxFailed, errors.New("rental agreement bytecode is not loaded"))
	}

	ctx, cancel := context.WithTimeout(ctx, g.txTimeout)
	defer cancel()

	opts, err := g.getTransactOpts(ctx, privKey)
	if err != nil {
		return nil, err
	}

	addr, tx, _, err := bind.DeployContract(opts, g.abi, g.bytecode, g.client,
		common.HexToAddress(terms.Tenant),
		terms.RentAmount,
		terms.DepositAmount,
		big.NewInt(terms.StartDate.Unix()),
		big.NewInt(terms.EndDate.Unix()),
	)
	if err != nil {
		return nil, lib.WrapError(ErrTxFailed, err)
	}

	receipt, err := g.waitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	if receipt.ContractAddress == "" {
		receipt.ContractAddress = addr.Hex()
	}
	if receipt.ContractAddress == (common.Address{}).Hex() {
		return nil, lib.WrapError(ErrTxFailed, fmt.Errorf("deployment %s yielded no contract address", tx.Hash()))
	}

	g.log.Infof("deployed rental agreement %s", lib.AddrShort(receipt.ContractAddress))
	return receipt, nil
}

func (g *RentalEthereum) IsContractActive(ctx context.Context, contractAddr string) (bool, error) {
	out, err := g.call(ctx, contractAddr, "isContractActive")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *RentalEthereum) IsFullySigned(ctx context.Context, contractAddr string) (bool, error) {
	out, err := g.call(ctx, contractAddr, "isFullySigned")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *RentalEthereum) GetRentAmount(ctx context.Context, contractAddr string) (*big.Int, error) {
	return g.callBigInt(ctx, contractAddr, "getRentAmount")
}

func (g *RentalEthereum) GetDepositAmount(ctx context.Context, contractAddr string) (*big.Int, error) {
	return g.callBigInt(ctx, contractAddr, "getDepositAmount")
}

func (g *RentalEthereum) GetContractState(ctx context.Context, contractAddr string) (string, error) {
	out, err := g.call(ctx, contractAddr, "getContractState")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (g *RentalEthereum) GetContractEndDate(ctx context.Context, contractAddr string) (time.Time, error) {
	ts, err := g.callBigInt(ctx, contractAddr, "getContractEndDate")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts.Int64(), 0).UTC(), nil
}

func (g *RentalEthereum) SignAgreement(ctx context.Context, contractAddr string, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, nil, "signAgreement")
}

func (g *RentalEthereum) PayRent(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, amount, "payRent")
}

func (g *RentalEthereum) PayDeposit(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, amount, "payDeposit")
}

func (g *RentalEthereum) TerminateContract(ctx context.Context, contractAddr string, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, nil, "terminateContract")
}

func (g *RentalEthereum) SimulateTime(ctx context.Context, contractAddr string, target time.Time, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, nil, "simularPassagemDeTempo", big.NewInt(target.Unix()))
}

func (g *RentalEthereum) AutoRenew(ctx context.Context, contractAddr string, privKey string) (*Receipt, error) {
	return g.transact(ctx, contractAddr, privKey, nil, "autoRenew")
}

func (g *RentalEthereum) bound(addr common.Address) *bind.BoundContract {
	return bind.NewBoundContract(addr, g.abi, g.client, g.client, g.client)
}

func (g *RentalEthereum) call(ctx context.Context, contractAddr string, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := g.bound(common.HexToAddress(contractAddr)).Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return nil, lib.WrapError(ErrLedgerRead, fmt.Errorf("%s: %w", method, err))
	}
	return out, nil
}

func (g *RentalEthereum) callBigInt(ctx context.Context, contractAddr string, method string) (*big.Int, error) {
	out, err := g.call(ctx, contractAddr, method)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (g *RentalEthereum) transact(ctx context.Context, contractAddr string, privKey string, value *big.Int, method string, args ...interface{}) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.txTimeout)
	defer cancel()

	opts, err := g.getTransactOpts(ctx, privKey)
	if err != nil {
		return nil, err
	}
	if value != nil {
		opts.Value = value
	}

	tx, err := g.bound(common.HexToAddress(contractAddr)).Transact(opts, method, args...)
	if err != nil {
		g.log.Errorf("%s on %s: %s", method, lib.AddrShort(contractAddr), err)
		return nil, lib.WrapError(ErrTxFailed, fmt.Errorf("%s: %w", method, err))
	}

	return g.waitMined(ctx, tx)
}

func (g *RentalEthereum) waitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return nil, lib.WrapError(ErrTxFailed, err)
	}
	// a delivered receipt with a non-success status is still a failure
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, lib.WrapError(ErrTxFailed, fmt.Errorf("transaction %s reverted", tx.Hash()))
	}

	res := &Receipt{
		TxHash:      tx.Hash().Hex(),
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	if receipt.ContractAddress != (common.Address{}) {
		res.ContractAddress = receipt.ContractAddress.Hex()
	}
	return res, nil
}

func (g *RentalEthereum) getTransactOpts(ctx context.Context, privKey string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privKey, "0x"))
	if err != nil {
		return nil, lib.WrapError(ErrInvalidKey, err)
	}

	chainId, err := g.client.ChainID(ctx)
	if err != nil {
		return nil, lib.WrapError(ErrConnection, err)
	}

	transactOpts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainId)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidKey, err)
	}

	if g.legacyTx {
		gasPrice, err := g.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, lib.WrapError(ErrConnection, err)
		}
		transactOpts.GasPrice = gasPrice
	}

	fromAddr, err := lib.PrivKeyToAddr(privateKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidKey, err)
	}

	nonce, err := g.getNonce(ctx, fromAddr)
	if err != nil {
		return nil, lib.WrapError(ErrConnection, err)
	}

	transactOpts.Value = big.NewInt(0)
	transactOpts.Nonce = nonce
	transactOpts.Context = ctx

	return transactOpts, nil
}

func (g *RentalEthereum) getNonce(ctx context.Context, from common.Address) (*big.Int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	nonce := &big.Int{}
	blockchainNonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nonce, err
	}

	if g.nonces[from] > blockchainNonce {
		nonce.SetUint64(g.nonces[from])
	} else {
		nonce.SetUint64(blockchainNonce)
	}

	g.nonces[from] = nonce.Uint64() + 1

	return nonce, nil
}
