package rental

import (
	"context"
	"encoding/json"

	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

// recorder appends audit events. Audit writes never fail the operation
// that produced them; errors are logged and swallowed.
type recorder struct {
	store *store.Store
	log   interfaces.ILogger
}

func (r *recorder) record(ctx context.Context, agreementID *uint, kind store.EventType, userAddr string, receipt *ledger.Receipt, payload map[string]interface{}) {
	event := &store.ContractEvent{
		AgreementID: agreementID,
		EventType:   kind,
		UserAddress: userAddr,
	}
	if receipt != nil {
		event.TransactionHash = receipt.TxHash
		event.GasUsed = receipt.GasUsed
		event.BlockNumber = receipt.BlockNumber
	}
	if requestID, ok := ctx.Value(RequestIDKey{}).(string); ok {
		event.RequestID = requestID
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			r.log.Warnf("cannot marshal event payload: %s", err)
		} else {
			event.EventData = string(data)
		}
	}
	if err := r.store.AddEvent(ctx, event); err != nil {
		r.log.Errorf("cannot append %s event for agreement %v: %s", kind, agreementID, err)
	}
}

func (r *recorder) failure(ctx context.Context, agreementID *uint, userAddr string, operation string, opErr error) {
	r.record(ctx, agreementID, store.EventFailure, userAddr, nil, map[string]interface{}{
		"operation": operation,
		"error":     opErr.Error(),
	})
}

// RequestIDKey is the context key under which the HTTP layer stores the
// request correlation id picked up by the audit log.
type RequestIDKey struct{}
