package ledger

import (
	"context"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EthClientMock implements EthereumClient for tests. Any func field left nil
// falls back to a harmless default.
type EthClientMock struct {
	CodeAtFunc              func(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContractFunc        func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumberFunc      func(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingCodeAtFunc       func(ctx context.Context, account common.Address) ([]byte, error)
	PendingNonceAtFunc      func(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPriceFunc     func(ctx context.Context) (*big.Int, error)
	SuggestGasTipCapFunc    func(ctx context.Context) (*big.Int, error)
	EstimateGasFunc         func(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransactionFunc     func(ctx context.Context, tx *types.Transaction) error
	TransactionReceiptFunc  func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainIDFunc             func(ctx context.Context) (*big.Int, error)
	FilterLogsFunc          func(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogsFunc func(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)

	SendTransactionCalledTimes int
	CallContractCalledTimes    int
}

func (m *EthClientMock) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	if m.CodeAtFunc != nil {
		return m.CodeAtFunc(ctx, contract, blockNumber)
	}
	return []byte{0x01}, nil
}

func (m *EthClientMock) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.CallContractCalledTimes++
	if m.CallContractFunc != nil {
		return m.CallContractFunc(ctx, call, blockNumber)
	}
	return nil, errors.New("CallContract is not mocked")
}

func (m *EthClientMock) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if m.HeaderByNumberFunc != nil {
		return m.HeaderByNumberFunc(ctx, number)
	}
	return &types.Header{BaseFee: big.NewInt(1)}, nil
}

func (m *EthClientMock) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	if m.PendingCodeAtFunc != nil {
		return m.PendingCodeAtFunc(ctx, account)
	}
	return []byte{0x01}, nil
}

func (m *EthClientMock) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if m.PendingNonceAtFunc != nil {
		return m.PendingNonceAtFunc(ctx, account)
	}
	return 0, nil
}

func (m *EthClientMock) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasPriceFunc != nil {
		return m.SuggestGasPriceFunc(ctx)
	}
	return big.NewInt(1), nil
}

func (m *EthClientMock) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasTipCapFunc != nil {
		return m.SuggestGasTipCapFunc(ctx)
	}
	return big.NewInt(1), nil
}

func (m *EthClientMock) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if m.EstimateGasFunc != nil {
		return m.EstimateGasFunc(ctx, call)
	}
	return 21000, nil
}

func (m *EthClientMock) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.SendTransactionCalledTimes++
	if m.SendTransactionFunc != nil {
		return m.SendTransactionFunc(ctx, tx)
	}
	return nil
}

func (m *EthClientMock) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, txHash)
	}
	return nil, errors.New("TransactionReceipt is not mocked")
}

func (m *EthClientMock) ChainID(ctx context.Context) (*big.Int, error) {
	if m.ChainIDFunc != nil {
		return m.ChainIDFunc(ctx)
	}
	return big.NewInt(1337), nil
}

func (m *EthClientMock) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if m.FilterLogsFunc != nil {
		return m.FilterLogsFunc(ctx, query)
	}
	return nil, nil
}

func (m *EthClientMock) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if m.SubscribeFilterLogsFunc != nil {
		return m.SubscribeFilterLogsFunc(ctx, query, ch)
	}
	return nil, errors.New("SubscribeFilterLogs is not mocked")
}
