package httphandlers

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/SmartLease/leaserouter/internal/lib"
	"gitlab.com/SmartLease/leaserouter/internal/rental"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

type CreateContractRequest struct {
	Landlord      string `json:"landlord" binding:"required"`
	Tenant        string `json:"tenant" binding:"required"`
	RentAmount    uint64 `json:"rent_amount" binding:"required"`
	DepositAmount uint64 `json:"deposit_amount" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	PrivateKey    string `json:"private_key" binding:"required"`
}

type SignContractRequest struct {
	UserType   string `json:"user_type" binding:"required,oneof=landlord tenant"`
	PrivateKey string `json:"private_key" binding:"required"`
}

type RegisterPaymentRequest struct {
	PaymentType string `json:"payment_type" binding:"required"`
	Amount      uint64 `json:"amount" binding:"required"`
	PrivateKey  string `json:"private_key" binding:"required"`
}

type TerminateContractRequest struct {
	PrivateKey string `json:"private_key" binding:"required"`
}

type SimulateTimeRequest struct {
	SimulatedDate string `json:"simulated_date" binding:"required"`
	PrivateKey    string `json:"private_key" binding:"required"`
}

type ContractResponse struct {
	ID                uint              `json:"id"`
	Landlord          string            `json:"landlord"`
	Tenant            string            `json:"tenant"`
	RentAmount        uint64            `json:"rent_amount"`
	DepositAmount     uint64            `json:"deposit_amount"`
	ContractAddress   string            `json:"contract_address"`
	StartDate         string            `json:"start_date"`
	EndDate           string            `json:"end_date"`
	ContractDuration  int               `json:"contract_duration"`
	Status            string            `json:"status"`
	ContractState     string            `json:"contract_state,omitempty"`
	LandlordSignature string            `json:"landlord_signature,omitempty"`
	TenantSignature   string            `json:"tenant_signature,omitempty"`
	SimulatedTime     string            `json:"simulated_time,omitempty"`
	Payments          []PaymentResponse `json:"payments,omitempty"`
}

type PaymentResponse struct {
	ID              uint   `json:"id"`
	Amount          uint64 `json:"amount"`
	PaymentType     string `json:"payment_type"`
	TransactionHash string `json:"transaction_hash"`
	IsVerified      bool   `json:"is_verified"`
	PaymentDate     string `json:"payment_date"`
}

type EventResponse struct {
	ID              uint   `json:"id"`
	EventType       string `json:"event_type"`
	UserAddress     string `json:"user_address,omitempty"`
	EventData       string `json:"event_data,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	GasUsed         uint64 `json:"gas_used,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	Timestamp       string `json:"timestamp"`
}

type ConfigResponse struct {
	Version string      `json:"version"`
	Config  interface{} `json:"config"`
}

func (r *CreateContractRequest) toServiceRequest() (rental.CreateRequest, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return rental.CreateRequest{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return rental.CreateRequest{}, err
	}
	return rental.CreateRequest{
		Landlord:      r.Landlord,
		Tenant:        r.Tenant,
		RentAmount:    r.RentAmount,
		DepositAmount: r.DepositAmount,
		StartDate:     start,
		EndDate:       end,
		PrivateKey:    r.PrivateKey,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{dateTimeLayout, dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, lib.WrapError(rental.ErrInvalidDateFormat, fmt.Errorf("%q", value))
}

// parsePaymentKind accepts the canonical kinds plus their Portuguese
// aliases used by older clients.
func parsePaymentKind(value string) (store.PaymentType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "rent", "aluguel":
		return store.PaymentRent, nil
	case "deposit", "deposito", "depósito", "caução", "caucao":
		return store.PaymentDeposit, nil
	default:
		return "", lib.WrapError(rental.ErrInvalidPaymentKind, fmt.Errorf("%q", value))
	}
}

func toContractResponse(a *store.RentalAgreement) ContractResponse {
	resp := ContractResponse{
		ID:                a.ID,
		Landlord:          a.Landlord,
		Tenant:            a.Tenant,
		RentAmount:        a.RentAmount,
		DepositAmount:     a.DepositAmount,
		ContractAddress:   a.ContractAddress,
		StartDate:         a.StartDate.UTC().Format(dateTimeLayout),
		EndDate:           a.EndDate.UTC().Format(dateTimeLayout),
		ContractDuration:  a.ContractDuration,
		Status:            string(a.Status),
		LandlordSignature: a.LandlordSignature,
		TenantSignature:   a.TenantSignature,
	}
	if a.SimulatedTime != nil {
		resp.SimulatedTime = a.SimulatedTime.UTC().Format(dateTimeLayout)
	}
	for i := range a.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(&a.Payments[i]))
	}
	return resp
}

func toContractDetailResponse(d *rental.AgreementDetail) ContractResponse {
	resp := toContractResponse(d.RentalAgreement)
	resp.ContractState = d.ContractState
	return resp
}

func toPaymentResponse(p *store.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		Amount:          p.Amount,
		PaymentType:     string(p.PaymentType),
		TransactionHash: p.TransactionHash,
		IsVerified:      p.IsVerified,
		PaymentDate:     p.PaymentDate.UTC().Format(dateTimeLayout),
	}
}

func toEventResponse(e *store.ContractEvent) EventResponse {
	return EventResponse{
		ID:              e.ID,
		EventType:       string(e.EventType),
		UserAddress:     e.UserAddress,
		EventData:       e.EventData,
		TransactionHash: e.TransactionHash,
		GasUsed:         e.GasUsed,
		BlockNumber:     e.BlockNumber,
		RequestID:       e.RequestID,
		Timestamp:       e.Timestamp.UTC().Format(time.RFC3339),
	}
}
