package rental

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
)

// LedgerMock implements Ledger with overridable funcs. Accounts are derived
// from real keys so address comparisons behave as in production. Unset
// funcs fall back to a healthy contract: active, not fully signed, every
// transaction mined successfully with a unique hash.
type LedgerMock struct {
	DeriveAccountFunc      func(privKey string) (string, error)
	DeployFunc             func(ctx context.Context, terms ledger.DeployTerms, privKey string) (*ledger.Receipt, error)
	IsContractActiveFunc   func(ctx context.Context, contractAddr string) (bool, error)
	IsFullySignedFunc      func(ctx context.Context, contractAddr string) (bool, error)
	GetRentAmountFunc      func(ctx context.Context, contractAddr string) (*big.Int, error)
	GetDepositAmountFunc   func(ctx context.Context, contractAddr string) (*big.Int, error)
	GetContractStateFunc   func(ctx context.Context, contractAddr string) (string, error)
	GetContractEndDateFunc func(ctx context.Context, contractAddr string) (time.Time, error)
	SignAgreementFunc      func(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)
	PayRentFunc            func(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error)
	PayDepositFunc         func(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error)
	TerminateContractFunc  func(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)
	SimulateTimeFunc       func(ctx context.Context, contractAddr string, target time.Time, privKey string) (*ledger.Receipt, error)
	AutoRenewFunc          func(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)

	RentAmount    *big.Int
	DepositAmount *big.Int
	EndDate       time.Time

	mu            sync.Mutex
	txCount       int
	SignCalls     int
	RenewCalls    int
	TerminateTxes int
}

func (m *LedgerMock) nextReceipt() *ledger.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	return &ledger.Receipt{
		TxHash:      fmt.Sprintf("0x%064x", m.txCount),
		GasUsed:     21000,
		BlockNumber: uint64(m.txCount),
	}
}

func (m *LedgerMock) DeriveAccount(privKey string) (string, error) {
	if m.DeriveAccountFunc != nil {
		return m.DeriveAccountFunc(privKey)
	}
	addr, err := lib.PrivKeyStringToAddr(privKey)
	if err != nil {
		return "", lib.WrapError(ledger.ErrInvalidKey, err)
	}
	return addr.Hex(), nil
}

func (m *LedgerMock) DeployRentalContract(ctx context.Context, terms ledger.DeployTerms, privKey string) (*ledger.Receipt, error) {
	if m.DeployFunc != nil {
		return m.DeployFunc(ctx, terms, privKey)
	}
	receipt := m.nextReceipt()
	receipt.ContractAddress = lib.GetRandomAddr().Hex()
	return receipt, nil
}

func (m *LedgerMock) IsContractActive(ctx context.Context, contractAddr string) (bool, error) {
	if m.IsContractActiveFunc != nil {
		return m.IsContractActiveFunc(ctx, contractAddr)
	}
	return true, nil
}

func (m *LedgerMock) IsFullySigned(ctx context.Context, contractAddr string) (bool, error) {
	if m.IsFullySignedFunc != nil {
		return m.IsFullySignedFunc(ctx, contractAddr)
	}
	return false, nil
}

func (m *LedgerMock) GetRentAmount(ctx context.Context, contractAddr string) (*big.Int, error) {
	if m.GetRentAmountFunc != nil {
		return m.GetRentAmountFunc(ctx, contractAddr)
	}
	if m.RentAmount != nil {
		return m.RentAmount, nil
	}
	return big.NewInt(1000), nil
}

func (m *LedgerMock) GetDepositAmount(ctx context.Context, contractAddr string) (*big.Int, error) {
	if m.GetDepositAmountFunc != nil {
		return m.GetDepositAmountFunc(ctx, contractAddr)
	}
	if m.DepositAmount != nil {
		return m.DepositAmount, nil
	}
	return big.NewInt(500), nil
}

func (m *LedgerMock) GetContractState(ctx context.Context, contractAddr string) (string, error) {
	if m.GetContractStateFunc != nil {
		return m.GetContractStateFunc(ctx, contractAddr)
	}
	return "Active", nil
}

func (m *LedgerMock) GetContractEndDate(ctx context.Context, contractAddr string) (time.Time, error) {
	if m.GetContractEndDateFunc != nil {
		return m.GetContractEndDateFunc(ctx, contractAddr)
	}
	return m.EndDate, nil
}

func (m *LedgerMock) SignAgreement(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error) {
	m.mu.Lock()
	m.SignCalls++
	m.mu.Unlock()
	if m.SignAgreementFunc != nil {
		return m.SignAgreementFunc(ctx, contractAddr, privKey)
	}
	return m.nextReceipt(), nil
}

func (m *LedgerMock) PayRent(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error) {
	if m.PayRentFunc != nil {
		return m.PayRentFunc(ctx, contractAddr, amount, privKey)
	}
	return m.nextReceipt(), nil
}

func (m *LedgerMock) PayDeposit(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error) {
	if m.PayDepositFunc != nil {
		return m.PayDepositFunc(ctx, contractAddr, amount, privKey)
	}
	return m.nextReceipt(), nil
}

func (m *LedgerMock) TerminateContract(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error) {
	m.mu.Lock()
	m.TerminateTxes++
	m.mu.Unlock()
	if m.TerminateContractFunc != nil {
		return m.TerminateContractFunc(ctx, contractAddr, privKey)
	}
	return m.nextReceipt(), nil
}

func (m *LedgerMock) SimulateTime(ctx context.Context, contractAddr string, target time.Time, privKey string) (*ledger.Receipt, error) {
	if m.SimulateTimeFunc != nil {
		return m.SimulateTimeFunc(ctx, contractAddr, target, privKey)
	}
	return m.nextReceipt(), nil
}

func (m *LedgerMock) AutoRenew(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error) {
	m.mu.Lock()
	m.RenewCalls++
	m.mu.Unlock()
	if m.AutoRenewFunc != nil {
		return m.AutoRenewFunc(ctx, contractAddr, privKey)
	}
	return m.nextReceipt(), nil
}
