package rental

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/config"
	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
	"golang.org/x/exp/slices"
)

type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

// Service is the lifecycle orchestrator. It keeps the relational record in
// step with the ledger contract: every state-changing operation validates
// local preconditions first, re-derives completeness from a live ledger
// read, submits the transaction, and only mutates the local record after a
// successful receipt.
type Service struct {
	store        *store.Store
	ledger       Ledger
	durationUnit string
	mutex        *lib.KeyedMutex
	events       *recorder
	log          interfaces.ILogger
}

func NewService(st *store.Store, lg Ledger, durationUnit string, log interfaces.ILogger) *Service {
	return &Service{
		store:        st,
		ledger:       lg,
		durationUnit: durationUnit,
		mutex:        lib.NewKeyedMutex(),
		events:       &recorder{store: st, log: log.Named("EVENTS")},
		log:          log,
	}
}

type CreateRequest struct {
	Landlord      string
	Tenant        string
	RentAmount    uint64
	DepositAmount uint64
	StartDate     time.Time
	EndDate       time.Time
	PrivateKey    string
}

type SignResult struct {
	Status store.AgreementStatus
	TxHash string
}

type TerminateResult struct {
	Termination *store.Termination
	TxHash      string
}

type SimulateResult struct {
	Agreement *store.RentalAgreement
	Renewed   bool
	TxHash    string
}

// Create deploys a new agreement contract and persists its local record in
// status pending. The ledger deployment happens before any local write, so
// a failed deployment leaves no trace besides a failure event.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*store.RentalAgreement, error) {
	landlord, err := lib.NormalizeAddress(req.Landlord)
	if err != nil {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("landlord: %w", err))
	}
	tenant, err := lib.NormalizeAddress(req.Tenant)
	if err != nil {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("tenant: %w", err))
	}
	if lib.AddrEqual(landlord, tenant) {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("landlord and tenant must differ"))
	}
	if req.RentAmount == 0 {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("rent amount must be positive"))
	}
	if req.DepositAmount == 0 {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("deposit amount must be positive"))
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("end date %s is not after start date %s",
			req.EndDate.Format(time.RFC3339), req.StartDate.Format(time.RFC3339)))
	}
	duration := s.durationOf(req.StartDate, req.EndDate)
	if duration <= 0 {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("contract duration must be positive"))
	}

	creator, err := s.ledger.DeriveAccount(req.PrivateKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidCredential, err)
	}

	receipt, err := s.ledger.DeployRentalContract(ctx, ledger.DeployTerms{
		Tenant:        tenant,
		RentAmount:    new(big.Int).SetUint64(req.RentAmount),
		DepositAmount: new(big.Int).SetUint64(req.DepositAmount),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}, req.PrivateKey)
	if err != nil {
		s.events.failure(ctx, nil, creator, "create", err)
		return nil, err
	}

	agreement := &store.RentalAgreement{
		Landlord:         landlord,
		Tenant:           tenant,
		RentAmount:       req.RentAmount,
		DepositAmount:    req.DepositAmount,
		ContractAddress:  receipt.ContractAddress,
		StartDate:        req.StartDate.UTC(),
		EndDate:          req.EndDate.UTC(),
		ContractDuration: duration,
		Status:           store.StatusPending,
	}
	if err := s.store.CreateAgreement(ctx, agreement); err != nil {
		return nil, err
	}

	s.log.Infof("agreement %d deployed at %s by %s", agreement.ID, lib.AddrShort(receipt.ContractAddress), lib.AddrShort(creator))
	s.events.record(ctx, &agreement.ID, store.EventCreate, creator, receipt, map[string]interface{}{
		"contract_address": receipt.ContractAddress,
		"rent_amount":      req.RentAmount,
		"deposit_amount":   req.DepositAmount,
	})
	return agreement, nil
}

// Sign submits the signer's approval to the ledger and mirrors it locally.
// Signer completeness is always re-read from the contract so two racing
// sign requests cannot both pass the already-signed check, and the record
// is re-read under the per-agreement lock so a racing signature is never
// overwritten by a stale save.
func (s *Service) Sign(ctx context.Context, id uint, role Role, privKey string) (*SignResult, error) {
	agreement, err := s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	signer, err := s.ledger.DeriveAccount(privKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidCredential, err)
	}

	s.mutex.Lock(id)
	defer s.mutex.Unlock(id)

	agreement, err = s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}

	active, err := s.ledger.IsContractActive(ctx, agreement.ContractAddress)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrAlreadyTerminated
	}
	fullySigned, err := s.ledger.IsFullySigned(ctx, agreement.ContractAddress)
	if err != nil {
		return nil, err
	}
	if fullySigned {
		return nil, ErrAlreadySigned
	}

	switch role {
	case RoleLandlord:
		if !lib.AddrEqual(signer, agreement.Landlord) {
			return nil, lib.WrapError(ErrRoleMismatch, fmt.Errorf("%s is not the landlord", lib.AddrShort(signer)))
		}
	case RoleTenant:
		if !lib.AddrEqual(signer, agreement.Tenant) {
			return nil, lib.WrapError(ErrRoleMismatch, fmt.Errorf("%s is not the tenant", lib.AddrShort(signer)))
		}
	default:
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("unknown role %q", role))
	}

	receipt, err := s.ledger.SignAgreement(ctx, agreement.ContractAddress, privKey)
	if err != nil {
		s.events.failure(ctx, &agreement.ID, signer, "sign", err)
		return nil, err
	}

	if role == RoleLandlord {
		agreement.LandlordSignature = signer
	} else {
		agreement.TenantSignature = signer
	}
	if agreement.IsFullySigned() {
		agreement.Status = store.StatusActive
	}
	if err := s.store.UpdateAgreement(ctx, agreement); err != nil {
		return nil, err
	}

	s.log.Infof("agreement %d signed by %s as %s, status %s", id, lib.AddrShort(signer), role, agreement.Status)
	s.events.record(ctx, &agreement.ID, store.EventSign, signer, receipt, map[string]interface{}{
		"role":   string(role),
		"status": string(agreement.Status),
	})
	return &SignResult{Status: agreement.Status, TxHash: receipt.TxHash}, nil
}

// RegisterPayment verifies the claimed amount against the ledger contract's
// own terms and submits the payment. The local rent and deposit columns are
// never consulted for the amount check, the contract is the authority on
// what it will accept.
func (s *Service) RegisterPayment(ctx context.Context, id uint, kind store.PaymentType, amount uint64, privKey string) (*store.Payment, error) {
	agreement, err := s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	payer, err := s.ledger.DeriveAccount(privKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidCredential, err)
	}
	if !agreement.IsParty(payer) {
		return nil, lib.WrapError(ErrUnauthorized, fmt.Errorf("payer %s", lib.AddrShort(payer)))
	}
	if !slices.Contains([]store.PaymentType{store.PaymentRent, store.PaymentDeposit}, kind) {
		return nil, lib.WrapError(ErrInvalidPaymentKind, fmt.Errorf("%q", kind))
	}
	if amount == 0 {
		return nil, lib.WrapError(ErrValidation, fmt.Errorf("amount must be positive"))
	}

	var expected *big.Int
	if kind == store.PaymentRent {
		expected, err = s.ledger.GetRentAmount(ctx, agreement.ContractAddress)
	} else {
		expected, err = s.ledger.GetDepositAmount(ctx, agreement.ContractAddress)
	}
	if err != nil {
		return nil, err
	}
	claimed := new(big.Int).SetUint64(amount)
	if expected.Cmp(claimed) != 0 {
		return nil, lib.WrapError(ErrAmountMismatch,
			fmt.Errorf("claimed %s, contract expects %s", claimed.String(), expected.String()))
	}

	var receipt *ledger.Receipt
	if kind == store.PaymentRent {
		receipt, err = s.ledger.PayRent(ctx, agreement.ContractAddress, claimed, privKey)
	} else {
		receipt, err = s.ledger.PayDeposit(ctx, agreement.ContractAddress, claimed, privKey)
	}
	if err != nil {
		s.events.failure(ctx, &agreement.ID, payer, "pay_"+string(kind), err)
		return nil, err
	}

	payment := &store.Payment{
		AgreementID:     agreement.ID,
		Amount:          amount,
		PaymentType:     kind,
		TransactionHash: receipt.TxHash,
		IsVerified:      true,
		PaymentDate:     time.Now().UTC(),
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	eventKind := store.EventPayRent
	if kind == store.PaymentDeposit {
		eventKind = store.EventPayDeposit
	}
	s.log.Infof("agreement %d received %s payment of %d from %s", id, kind, amount, lib.AddrShort(payer))
	s.events.record(ctx, &agreement.ID, eventKind, payer, receipt, map[string]interface{}{
		"amount": amount,
		"kind":   string(kind),
	})
	return payment, nil
}

// Terminate ends a fully signed agreement. At most one Termination row can
// ever exist per agreement; the conditional status update and the unique
// index both guard the invariant against racing calls.
func (s *Service) Terminate(ctx context.Context, id uint, privKey string) (*TerminateResult, error) {
	agreement, err := s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	caller, err := s.ledger.DeriveAccount(privKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidCredential, err)
	}
	if !agreement.IsParty(caller) {
		return nil, lib.WrapError(ErrUnauthorized, fmt.Errorf("caller %s", lib.AddrShort(caller)))
	}

	s.mutex.Lock(id)
	defer s.mutex.Unlock(id)

	agreement, err = s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	if agreement.Status == store.StatusTerminated {
		return nil, ErrAlreadyTerminated
	}
	if !agreement.IsFullySigned() {
		return nil, ErrNotFullySigned
	}

	receipt, err := s.ledger.TerminateContract(ctx, agreement.ContractAddress, privKey)
	if err != nil {
		s.events.failure(ctx, &agreement.ID, caller, "terminate", err)
		return nil, err
	}

	if err := s.store.UpdateStatusIf(ctx, id, store.StatusActive, store.StatusTerminated); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyTerminated
		}
		return nil, err
	}
	termination := &store.Termination{
		AgreementID:                agreement.ID,
		TerminatedBy:               caller,
		TerminationTransactionHash: receipt.TxHash,
		TerminationDate:            time.Now().UTC(),
	}
	if err := s.store.CreateTermination(ctx, termination); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyTerminated
		}
		return nil, err
	}

	s.log.Infof("agreement %d terminated by %s", id, lib.AddrShort(caller))
	s.events.record(ctx, &agreement.ID, store.EventTerminate, caller, receipt, nil)
	return &TerminateResult{Termination: termination, TxHash: receipt.TxHash}, nil
}

// SimulateTime advances the contract's internal clock to target. When the
// target reaches the agreement's end date the local end date is extended by
// one full contract-duration period, mirroring the contract's own renewal.
func (s *Service) SimulateTime(ctx context.Context, id uint, target time.Time, privKey string) (*SimulateResult, error) {
	agreement, err := s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	caller, err := s.ledger.DeriveAccount(privKey)
	if err != nil {
		return nil, lib.WrapError(ErrInvalidCredential, err)
	}
	if target.Before(time.Now().Add(-time.Minute)) {
		return nil, lib.WrapError(ErrDateInPast, fmt.Errorf("target %s", target.Format(time.RFC3339)))
	}

	s.mutex.Lock(id)
	defer s.mutex.Unlock(id)

	agreement, err = s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}

	active, err := s.ledger.IsContractActive(ctx, agreement.ContractAddress)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrContractNotActive
	}

	receipt, err := s.ledger.SimulateTime(ctx, agreement.ContractAddress, target, privKey)
	if err != nil {
		s.events.failure(ctx, &agreement.ID, caller, "simulate_time", err)
		return nil, err
	}

	renewed := false
	previousEnd := agreement.EndDate
	if !target.Before(agreement.EndDate) {
		agreement.EndDate = s.extend(agreement.EndDate, agreement.ContractDuration)
		renewed = true
	}
	targetUTC := target.UTC()
	agreement.SimulatedTime = &targetUTC
	if err := s.store.UpdateAgreement(ctx, agreement); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"simulated_date": targetUTC.Format(time.RFC3339),
		"renewed":        renewed,
	}
	if renewed {
		payload["previous_end_date"] = previousEnd.Format(time.RFC3339)
		payload["new_end_date"] = agreement.EndDate.Format(time.RFC3339)
		s.log.Infof("agreement %d renewed until %s", id, agreement.EndDate.Format(time.RFC3339))
	}
	s.events.record(ctx, &agreement.ID, store.EventSimulate, caller, receipt, payload)
	return &SimulateResult{Agreement: agreement, Renewed: renewed, TxHash: receipt.TxHash}, nil
}

// List returns agreements filtered by status and party address. An invalid
// party filter is a validation error rather than an empty result.
func (s *Service) List(ctx context.Context, status store.AgreementStatus, party string) ([]store.RentalAgreement, error) {
	if party != "" {
		normalized, err := lib.NormalizeAddress(party)
		if err != nil {
			return nil, lib.WrapError(ErrValidation, err)
		}
		party = normalized
	}
	return s.store.ListAgreements(ctx, status, party)
}

// AgreementDetail is a stored agreement joined with the state reported by
// its ledger contract.
type AgreementDetail struct {
	*store.RentalAgreement
	ContractState string
}

// Get returns the agreement together with the contract's own state. A failed
// state read leaves ContractState empty instead of failing the lookup.
func (s *Service) Get(ctx context.Context, id uint) (*AgreementDetail, error) {
	agreement, err := s.store.GetAgreement(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err)
	}
	state, err := s.ledger.GetContractState(ctx, agreement.ContractAddress)
	if err != nil {
		s.log.Warnf("cannot read contract state for agreement %d: %s", id, err)
		state = ""
	}
	return &AgreementDetail{RentalAgreement: agreement, ContractState: state}, nil
}

func (s *Service) Events(ctx context.Context, id uint) ([]store.ContractEvent, error) {
	if _, err := s.store.GetAgreement(ctx, id); err != nil {
		return nil, s.notFoundOr(err)
	}
	return s.store.ListEvents(ctx, id)
}

func (s *Service) durationOf(start, end time.Time) int {
	if s.durationUnit == config.DurationUnitMinutes {
		minutes := int(end.Sub(start).Minutes())
		if minutes < 1 && end.After(start) {
			return 1
		}
		return minutes
	}
	return lib.MonthsBetween(start, end)
}

func (s *Service) extend(end time.Time, duration int) time.Time {
	if s.durationUnit == config.DurationUnitMinutes {
		return end.Add(time.Duration(duration) * time.Minute)
	}
	return lib.AddMonths(end, duration)
}

func (s *Service) notFoundOr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
