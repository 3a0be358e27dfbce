package httphandlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/SmartLease/leaserouter/internal/rental"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/ledger"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

func (h *HTTPHandler) CreateContract(ctx *gin.Context) {
	var req CreateContractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	serviceReq, err := req.toServiceRequest()
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}

	agreement, err := h.service.Create(ctx.Request.Context(), serviceReq)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(201, toContractResponse(agreement))
}

func (h *HTTPHandler) ListContracts(ctx *gin.Context) {
	status := store.AgreementStatus(ctx.Query("status"))
	party := ctx.Query("party")

	agreements, err := h.service.List(ctx.Request.Context(), status, party)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	resp := make([]ContractResponse, len(agreements))
	for i := range agreements {
		resp[i] = toContractResponse(&agreements[i])
	}
	ctx.JSON(200, gin.H{"contracts": resp, "total": len(resp)})
}

func (h *HTTPHandler) GetContract(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	detail, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(200, toContractDetailResponse(detail))
}

func (h *HTTPHandler) GetContractEvents(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	events, err := h.service.Events(ctx.Request.Context(), id)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	resp := make([]EventResponse, len(events))
	for i := range events {
		resp[i] = toEventResponse(&events[i])
	}
	ctx.JSON(200, gin.H{"events": resp, "total": len(resp)})
}

func (h *HTTPHandler) SignContract(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	var req SignContractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Sign(ctx.Request.Context(), id, rental.Role(req.UserType), req.PrivateKey)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{
		"status":           string(res.Status),
		"transaction_hash": res.TxHash,
	})
}

func (h *HTTPHandler) RegisterPayment(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	var req RegisterPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	kind, err := parsePaymentKind(req.PaymentType)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}

	payment, err := h.service.RegisterPayment(ctx.Request.Context(), id, kind, req.Amount, req.PrivateKey)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(201, toPaymentResponse(payment))
}

func (h *HTTPHandler) TerminateContract(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	var req TerminateContractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Terminate(ctx.Request.Context(), id, req.PrivateKey)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{
		"status":           string(store.StatusTerminated),
		"terminated_by":    res.Termination.TerminatedBy,
		"transaction_hash": res.TxHash,
	})
}

func (h *HTTPHandler) SimulateTime(ctx *gin.Context) {
	id, ok := h.contractID(ctx)
	if !ok {
		return
	}
	var req SimulateTimeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	target, err := parseDate(req.SimulatedDate)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}

	res, err := h.service.SimulateTime(ctx.Request.Context(), id, target, req.PrivateKey)
	if err != nil {
		h.abortWithError(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{
		"renewed":          res.Renewed,
		"end_date":         res.Agreement.EndDate.UTC().Format(dateTimeLayout),
		"simulated_date":   target.UTC().Format(time.RFC3339),
		"transaction_hash": res.TxHash,
	})
}

func (h *HTTPHandler) contractID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("ID"), 10, 32)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "invalid contract id"})
		return 0, false
	}
	return uint(id), true
}

func (h *HTTPHandler) abortWithError(ctx *gin.Context, err error) {
	status := classifyError(err)
	if status >= 500 {
		h.log.Errorf("%s %s failed: %s", ctx.Request.Method, ctx.FullPath(), err)
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func classifyError(err error) int {
	switch {
	case errors.Is(err, rental.ErrNotFound):
		return 404
	case errors.Is(err, rental.ErrRoleMismatch),
		errors.Is(err, rental.ErrUnauthorized),
		errors.Is(err, rental.ErrAlreadySigned),
		errors.Is(err, rental.ErrAlreadyTerminated):
		return 403
	case errors.Is(err, rental.ErrValidation),
		errors.Is(err, rental.ErrInvalidCredential),
		errors.Is(err, rental.ErrNotFullySigned),
		errors.Is(err, rental.ErrContractNotActive),
		errors.Is(err, rental.ErrAmountMismatch),
		errors.Is(err, rental.ErrInvalidPaymentKind),
		errors.Is(err, rental.ErrDateInPast),
		errors.Is(err, rental.ErrInvalidDateFormat):
		return 400
	case errors.Is(err, ledger.ErrConnection),
		errors.Is(err, ledger.ErrTxFailed),
		errors.Is(err, ledger.ErrLedgerRead):
		return 500
	default:
		return 500
	}
}
