package store

import (
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/lib"
)

type AgreementStatus string

const (
	StatusPending    AgreementStatus = "pending"
	StatusActive     AgreementStatus = "active"
	StatusTerminated AgreementStatus = "terminated"
)

type PaymentType string

const (
	PaymentRent    PaymentType = "rent"
	PaymentDeposit PaymentType = "deposit"
)

type EventType string

const (
	EventCreate     EventType = "create"
	EventSign       EventType = "sign"
	EventPayRent    EventType = "pay_rent"
	EventPayDeposit EventType = "pay_deposit"
	EventTerminate  EventType = "terminate"
	EventSimulate   EventType = "simulate_time"
	EventAutoRenew  EventType = "auto_renew"
	EventFailure    EventType = "failure"
)

// RentalAgreement is the local relational record of an on-ledger agreement.
// Rows are never deleted; the ledger contract remains the authoritative
// source for signing and termination completeness.
type RentalAgreement struct {
	ID              uint   `gorm:"primaryKey"`
	Landlord        string `gorm:"size:42;not null"`
	Tenant          string `gorm:"size:42;not null"`
	RentAmount      uint64 `gorm:"not null"`
	DepositAmount   uint64 `gorm:"not null"`
	ContractAddress string `gorm:"size:42;uniqueIndex;not null"`

	StartDate        time.Time
	EndDate          time.Time
	RentDueDate      *time.Time
	ContractDuration int // in duration units, see config.Contract.DurationUnit

	Status            AgreementStatus `gorm:"size:10;default:pending"`
	LandlordSignature string          `gorm:"size:132"`
	TenantSignature   string          `gorm:"size:132"`
	SimulatedTime     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Payments []Payment `gorm:"foreignKey:AgreementID"`
}

func (a *RentalAgreement) IsFullySigned() bool {
	return a.LandlordSignature != "" && a.TenantSignature != ""
}

// IsParty reports whether addr is the landlord or the tenant of the
// agreement, ignoring checksum casing.
func (a *RentalAgreement) IsParty(addr string) bool {
	return lib.AddrEqual(addr, a.Landlord) || lib.AddrEqual(addr, a.Tenant)
}

// Payment records one confirmed on-ledger payment transaction. Created only
// after a successful receipt, immutable afterwards.
type Payment struct {
	ID              uint             `gorm:"primaryKey"`
	AgreementID     uint             `gorm:"index;not null"`
	Agreement       *RentalAgreement `gorm:"foreignKey:AgreementID"`
	Amount          uint64           `gorm:"not null"`
	PaymentType     PaymentType      `gorm:"size:10;not null"`
	TransactionHash string           `gorm:"size:66;uniqueIndex;not null"`
	IsVerified      bool
	PaymentDate     time.Time
}

// Termination is the one-to-one termination record of an agreement. The
// unique index on AgreementID enforces the at-most-one invariant at the
// storage layer regardless of orchestrator races.
type Termination struct {
	ID                         uint             `gorm:"primaryKey"`
	AgreementID                uint             `gorm:"uniqueIndex;not null"`
	Agreement                  *RentalAgreement `gorm:"foreignKey:AgreementID"`
	TerminatedBy               string           `gorm:"size:42;not null"`
	TerminationTransactionHash string           `gorm:"size:66"`
	TerminationDate            time.Time
}

// ContractEvent is the append-only audit log. AgreementID is nullable so
// failures with no resolvable agreement can still be logged.
type ContractEvent struct {
	ID              uint      `gorm:"primaryKey"`
	AgreementID     *uint     `gorm:"index"`
	EventType       EventType `gorm:"size:20;not null"`
	UserAddress     string    `gorm:"size:42"`
	EventData       string    `gorm:"type:text"` // JSON payload
	TransactionHash string    `gorm:"size:66"`
	GasUsed         uint64
	BlockNumber     uint64
	RequestID       string `gorm:"size:36"`
	Timestamp       time.Time
}
