package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
)

const (
	testPrivKey      = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testContractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func newTestGateway(client EthereumClient) *RentalEthereum {
	g := NewRentalEthereum(client, "0x600060005260206000f3", lib.NewTestLogger())
	g.SetLegacyTx(true)
	return g
}

func packOutput(t *testing.T, method string, values ...interface{}) []byte {
	t.Helper()
	out, err := rentalABI.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

func TestDeriveAccount(t *testing.T) {
	g := newTestGateway(&EthClientMock{})

	addr, err := g.DeriveAccount(testPrivKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr)

	addrPrefixed, err := g.DeriveAccount("0x" + testPrivKey)
	require.NoError(t, err)
	assert.Equal(t, addr, addrPrefixed)
}

func TestDeriveAccountInvalid(t *testing.T) {
	g := newTestGateway(&EthClientMock{})
	_, err := g.DeriveAccount("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestIsContractActive(t *testing.T) {
	client := &EthClientMock{
		CallContractFunc: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
			return packOutput(t, "isContractActive", true), nil
		},
	}
	g := newTestGateway(client)

	active, err := g.IsContractActive(context.Background(), testContractAddr)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, client.CallContractCalledTimes)
}

func TestGetRentAmount(t *testing.T) {
	client := &EthClientMock{
		CallContractFunc: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
			return packOutput(t, "getRentAmount", big.NewInt(1000)), nil
		},
	}
	g := newTestGateway(client)

	amount, err := g.GetRentAmount(context.Background(), testContractAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount.Int64())
}

func TestReadErrorClassified(t *testing.T) {
	client := &EthClientMock{
		CallContractFunc: func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
			return nil, assert.AnError
		},
	}
	g := newTestGateway(client)

	_, err := g.IsFullySigned(context.Background(), testContractAddr)
	assert.ErrorIs(t, err, ErrLedgerRead)
}

func TestSignAgreementMinedSuccessfully(t *testing.T) {
	var (
		mu     sync.Mutex
		sentTx *types.Transaction
	)
	client := &EthClientMock{
		SendTransactionFunc: func(ctx context.Context, tx *types.Transaction) error {
			mu.Lock()
			defer mu.Unlock()
			sentTx = tx
			return nil
		},
		TransactionReceiptFunc: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			mu.Lock()
			defer mu.Unlock()
			return &types.Receipt{
				Status:      types.ReceiptStatusSuccessful,
				TxHash:      txHash,
				GasUsed:     42000,
				BlockNumber: big.NewInt(7),
			}, nil
		},
	}
	g := newTestGateway(client)

	receipt, err := g.SignAgreement(context.Background(), testContractAddr, testPrivKey)
	require.NoError(t, err)
	require.NotNil(t, sentTx)
	assert.Equal(t, sentTx.Hash().Hex(), receipt.TxHash)
	assert.Equal(t, uint64(42000), receipt.GasUsed)
	assert.Equal(t, uint64(7), receipt.BlockNumber)
	assert.Equal(t, 1, client.SendTransactionCalledTimes)
}

func TestRevertedReceiptIsTxFailure(t *testing.T) {
	client := &EthClientMock{
		TransactionReceiptFunc: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{
				Status:      types.ReceiptStatusFailed,
				TxHash:      txHash,
				BlockNumber: big.NewInt(7),
			}, nil
		},
	}
	g := newTestGateway(client)

	_, err := g.TerminateContract(context.Background(), testContractAddr, testPrivKey)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestTransportErrorIsTxFailure(t *testing.T) {
	client := &EthClientMock{
		SendTransactionFunc: func(ctx context.Context, tx *types.Transaction) error {
			return assert.AnError
		},
	}
	g := newTestGateway(client)

	_, err := g.PayRent(context.Background(), testContractAddr, big.NewInt(1000), testPrivKey)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestTransactInvalidKey(t *testing.T) {
	g := newTestGateway(&EthClientMock{})
	_, err := g.SignAgreement(context.Background(), testContractAddr, "zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNoncesAreTrackedPerSender(t *testing.T) {
	// second key controls a different account
	otherKey := "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

	var (
		mu     sync.Mutex
		nonces []uint64
	)
	client := &EthClientMock{
		SendTransactionFunc: func(ctx context.Context, tx *types.Transaction) error {
			mu.Lock()
			defer mu.Unlock()
			nonces = append(nonces, tx.Nonce())
			return nil
		},
		TransactionReceiptFunc: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash, BlockNumber: big.NewInt(1)}, nil
		},
	}
	g := newTestGateway(client)

	_, err := g.SignAgreement(context.Background(), testContractAddr, testPrivKey)
	require.NoError(t, err)
	_, err = g.SignAgreement(context.Background(), testContractAddr, otherKey)
	require.NoError(t, err)
	_, err = g.SignAgreement(context.Background(), testContractAddr, testPrivKey)
	require.NoError(t, err)

	// both senders start at the node-reported nonce 0; the repeated sender
	// advances locally
	assert.Equal(t, []uint64{0, 0, 1}, nonces)
}

func TestDeployWithoutBytecode(t *testing.T) {
	g := NewRentalEthereum(&EthClientMock{}, "", lib.NewTestLogger())
	_, err := g.DeployRentalContract(context.Background(), DeployTerms{Tenant: testContractAddr, RentAmount: big.NewInt(1), DepositAmount: big.NewInt(1)}, testPrivKey)
	assert.ErrorIs(t, err, ErrTxFailed)
}
