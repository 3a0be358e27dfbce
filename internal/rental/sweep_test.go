package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/SmartLease/leaserouter/internal/config"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

type staticKey string

func (k staticKey) LandlordKey(_ context.Context) (string, error) {
	return string(k), nil
}

func newTestSweeper(t *testing.T) (*RenewalSweeper, *Service, *LedgerMock, *store.Store) {
	t.Helper()
	svc, mock, st := newTestService(t)
	sweeper := NewRenewalSweeper(st, mock, staticKey(landlordKey), config.DurationUnitMonths, time.Hour, lib.NewTestLogger())
	return sweeper, svc, mock, st
}

func activeAgreement(t *testing.T, svc *Service) *store.RentalAgreement {
	t.Helper()
	agreement := mustCreate(t, svc)
	mustFullySign(t, svc, agreement.ID)
	got, err := svc.Get(context.Background(), agreement.ID)
	require.NoError(t, err)
	return got.RentalAgreement
}

// backdate rewrites the stored term so the agreement already ended locally.
func backdate(t *testing.T, st *store.Store, agreement *store.RentalAgreement, end time.Time) {
	t.Helper()
	agreement.StartDate = lib.AddMonths(end, -agreement.ContractDuration)
	agreement.EndDate = end
	require.NoError(t, st.UpdateAgreement(context.Background(), agreement))
}

func TestSweepRenewsExpiredAgreement(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)
	ctx := context.Background()

	agreement := activeAgreement(t, svc)
	// both the stored term and the ledger say the contract ended yesterday
	backdate(t, st, agreement, time.Now().UTC().Add(-24*time.Hour))
	mock.EndDate = agreement.EndDate

	renewed := sweeper.Sweep(ctx)
	assert.Equal(t, 1, renewed)
	assert.Equal(t, 1, mock.RenewCalls)

	got, err := svc.Get(ctx, agreement.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.AddMonths(agreement.EndDate, agreement.ContractDuration), got.EndDate)

	events, err := svc.Events(ctx, agreement.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, store.EventAutoRenew, last.EventType)
	assert.Equal(t, agreement.Landlord, last.UserAddress)
}

func TestSweepLedgerEndDateIsAuthoritative(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)

	agreement := activeAgreement(t, svc)
	// the stored term has lapsed but the contract itself has not
	backdate(t, st, agreement, time.Now().UTC().Add(-24*time.Hour))
	mock.EndDate = time.Now().UTC().Add(24 * time.Hour)

	renewed := sweeper.Sweep(context.Background())
	assert.Zero(t, renewed)
	assert.Zero(t, mock.RenewCalls)
}

func TestSweepSkipsLocallyCurrentAgreements(t *testing.T) {
	sweeper, svc, mock, _ := newTestSweeper(t)

	calls := 0
	mock.GetContractEndDateFunc = func(ctx context.Context, contractAddr string) (time.Time, error) {
		calls++
		return mock.EndDate, nil
	}
	activeAgreement(t, svc)
	mock.EndDate = time.Now().UTC().Add(-24 * time.Hour)

	renewed := sweeper.Sweep(context.Background())
	assert.Zero(t, renewed)
	assert.Zero(t, calls, "agreements still inside their stored term are not read from the ledger")
}

func TestSweepSkipsPendingAgreements(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)

	agreement := mustCreate(t, svc)
	backdate(t, st, agreement, time.Now().UTC().Add(-24*time.Hour))
	mock.EndDate = agreement.EndDate

	renewed := sweeper.Sweep(context.Background())
	assert.Zero(t, renewed)
	assert.Zero(t, mock.RenewCalls)
}

func TestSweepUsesSimulatedTime(t *testing.T) {
	sweeper, svc, mock, _ := newTestSweeper(t)
	ctx := context.Background()

	agreement := activeAgreement(t, svc)
	mock.EndDate = agreement.EndDate

	// contract end is in the future, but simulated time has passed it
	simulated := agreement.EndDate.Add(time.Hour)
	_, err := svc.SimulateTime(ctx, agreement.ID, simulated, landlordKey)
	require.NoError(t, err)
	// SimulateTime already renewed once; point the ledger at the new end
	got, err := svc.Get(ctx, agreement.ID)
	require.NoError(t, err)
	mock.EndDate = got.EndDate

	renewed := sweeper.Sweep(ctx)
	assert.Zero(t, renewed, "simulated clock is still before the extended end date")
}

func TestSweepIsolatesPerAgreementFailures(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)
	ctx := context.Background()

	first := activeAgreement(t, svc)
	second := activeAgreement(t, svc)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	backdate(t, st, first, yesterday)
	backdate(t, st, second, yesterday)
	mock.EndDate = yesterday

	mock.AutoRenewFunc = func(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error) {
		if contractAddr == second.ContractAddress {
			return nil, lib.WrapError(ledger.ErrTxFailed, errors.New("reverted"))
		}
		return mock.nextReceipt(), nil
	}

	renewed := sweeper.Sweep(ctx)
	assert.Equal(t, 1, renewed, "failure on one agreement must not block the rest")

	events, err := svc.Events(ctx, second.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, store.EventFailure, last.EventType)
	assert.Contains(t, last.EventData, "auto_renew")

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.AddMonths(first.EndDate, first.ContractDuration), got.EndDate)
}

func TestSweepRenewsOnSimulatedClock(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)
	ctx := context.Background()

	agreement := activeAgreement(t, svc)
	// the real clock has not reached the end date, the simulated one has
	end := time.Now().UTC().Add(24 * time.Hour)
	simulated := end.Add(time.Hour)
	agreement.EndDate = end
	agreement.SimulatedTime = &simulated
	require.NoError(t, st.UpdateAgreement(ctx, agreement))
	mock.EndDate = end

	renewed := sweeper.Sweep(ctx)
	assert.Equal(t, 1, renewed)
	assert.Equal(t, 1, mock.RenewCalls)
}

func TestSweepDoesNotResurrectTerminatedAgreement(t *testing.T) {
	sweeper, svc, mock, st := newTestSweeper(t)
	ctx := context.Background()

	agreement := activeAgreement(t, svc)
	backdate(t, st, agreement, time.Now().UTC().Add(-24*time.Hour))
	mock.EndDate = agreement.EndDate

	// the landlord terminates after the sweep has picked the agreement up
	// but before its record is written back
	mock.AutoRenewFunc = func(ctx context.Context, contractAddr string, privKey string) (*ledger.Receipt, error) {
		_, err := svc.Terminate(ctx, agreement.ID, landlordKey)
		require.NoError(t, err)
		return mock.nextReceipt(), nil
	}

	renewed := sweeper.Sweep(ctx)
	assert.Zero(t, renewed)

	got, err := svc.Get(ctx, agreement.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusTerminated, got.Status)
	assert.Equal(t, agreement.EndDate, got.EndDate, "termination must not be overwritten by the renewal write")

	events, err := svc.Events(ctx, agreement.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, store.EventFailure, last.EventType)
}

func TestSweepKeyResolverFailure(t *testing.T) {
	_, svc, mock, st := newTestSweeper(t)
	failing := NewRenewalSweeper(st, mock,
		&failingResolver{}, config.DurationUnitMonths, time.Hour, lib.NewTestLogger())

	agreement := activeAgreement(t, svc)
	backdate(t, st, agreement, time.Now().UTC().Add(-24*time.Hour))
	mock.EndDate = agreement.EndDate

	renewed := failing.Sweep(context.Background())
	assert.Zero(t, renewed)
	assert.Zero(t, mock.RenewCalls)
}

type failingResolver struct{}

func (f *failingResolver) LandlordKey(_ context.Context) (string, error) {
	return "", errors.New("key file missing")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sweeper, _, _, _ := newTestSweeper(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
