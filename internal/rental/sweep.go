package rental

import (
	"context"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/config"
	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

// RenewalSweeper periodically renews active agreements whose on-ledger end
// date has passed. Agreements are handled sequentially; a failure on one is
// recorded as a failure event and never interrupts the rest of the sweep.
type RenewalSweeper struct {
	store        *store.Store
	ledger       Ledger
	keys         KeyResolver
	durationUnit string
	interval     time.Duration
	events       *recorder
	log          interfaces.ILogger
}

func NewRenewalSweeper(st *store.Store, lg Ledger, keys KeyResolver, durationUnit string, interval time.Duration, log interfaces.ILogger) *RenewalSweeper {
	return &RenewalSweeper{
		store:        st,
		ledger:       lg,
		keys:         keys,
		durationUnit: durationUnit,
		interval:     interval,
		events:       &recorder{store: st, log: log.Named("EVENTS")},
		log:          log,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *RenewalSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over the active agreements whose stored end date has
// passed and returns the number of agreements renewed. The ledger's own end
// date is re-checked per agreement before any renewal is submitted.
func (r *RenewalSweeper) Sweep(ctx context.Context) int {
	agreements, err := r.store.ListExpiredActive(ctx, time.Now().UTC())
	if err != nil {
		r.log.Errorf("renewal sweep cannot list agreements: %s", err)
		return 0
	}

	renewed := 0
	for i := range agreements {
		ok, err := r.renewOne(ctx, &agreements[i])
		if err != nil {
			r.log.Warnf("renewal of agreement %d failed: %s", agreements[i].ID, err)
			r.events.failure(ctx, &agreements[i].ID, "", "auto_renew", err)
			continue
		}
		if ok {
			renewed++
		}
	}
	if renewed > 0 {
		r.log.Infof("renewal sweep renewed %d of %d due agreements", renewed, len(agreements))
	}
	return renewed
}

func (r *RenewalSweeper) renewOne(ctx context.Context, agreement *store.RentalAgreement) (bool, error) {
	endDate, err := r.ledger.GetContractEndDate(ctx, agreement.ContractAddress)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if agreement.SimulatedTime != nil && agreement.SimulatedTime.After(now) {
		now = *agreement.SimulatedTime
	}
	if now.Before(endDate) {
		return false, nil
	}

	privKey, err := r.keys.LandlordKey(ctx)
	if err != nil {
		return false, err
	}
	receipt, err := r.ledger.AutoRenew(ctx, agreement.ContractAddress, privKey)
	if err != nil {
		return false, err
	}

	previousEnd := agreement.EndDate
	var newEnd time.Time
	if r.durationUnit == config.DurationUnitMinutes {
		newEnd = previousEnd.Add(time.Duration(agreement.ContractDuration) * time.Minute)
	} else {
		newEnd = lib.AddMonths(previousEnd, agreement.ContractDuration)
	}
	// the end date moves only while the row is still active and unchanged;
	// a concurrent termination wins
	if err := r.store.UpdateEndDateIf(ctx, agreement.ID, previousEnd, newEnd); err != nil {
		return false, err
	}
	agreement.EndDate = newEnd

	r.events.record(ctx, &agreement.ID, store.EventAutoRenew, agreement.Landlord, receipt, map[string]interface{}{
		"previous_end_date": previousEnd.Format(time.RFC3339),
		"new_end_date":      agreement.EndDate.Format(time.RFC3339),
	})
	return true, nil
}
