package rental

import (
	"context"
	"math/big"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
)

// Ledger is the narrow gateway the orchestrator uses to talk to the
// agreement contracts. Satisfied by ledger.RentalEthereum.
type Ledger interface {
	DeriveAccount(privKey string) (string, error)
	DeployRentalContract(ctx context.Context, terms ledger.DeployTerms, privKey string) (*ledger.Receipt, error)

	IsContractActive(ctx context.Context, contractAddr string) (bool, error)
	IsFullySigned(ctx context.Context, contractAddr string) (bool, error)
	GetRentAmount(ctx context.Context, contractAddr string) (*big.Int, error)
	GetDepositAmount(ctx context.Context, contractAddr string) (*big.Int, error)
	GetContractState(ctx context.Context, contractAddr string) (string, error)
	GetContractEndDate(ctx context.Context, contractAddr string) (time.Time, error)

	SignAgreement(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)
	PayRent(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error)
	PayDeposit(ctx context.Context, contractAddr string, amount *big.Int, privKey string) (*ledger.Receipt, error)
	TerminateContract(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)
	SimulateTime(ctx context.Context, contractAddr string, target time.Time, privKey string) (*ledger.Receipt, error)
	AutoRenew(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error)
}

// KeyResolver hands out the landlord signing key for unattended renewal.
// Implementations decrypt at point of use and never cache plaintext.
type KeyResolver interface {
	LandlordKey(ctx context.Context) (string, error)
}
