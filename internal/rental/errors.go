package rental

import "errors"

// Classified orchestration errors. HTTP handlers map these onto status
// codes; ledger transport sentinels (ledger.ErrConnection, ErrTxFailed,
// ErrLedgerRead) pass through unwrapped and map to 5xx.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("agreement not found")
	ErrInvalidCredential  = errors.New("invalid signing credential")
	ErrRoleMismatch       = errors.New("credential does not match claimed role")
	ErrUnauthorized       = errors.New("address is not a party to this agreement")
	ErrAlreadySigned      = errors.New("agreement already fully signed")
	ErrAlreadyTerminated  = errors.New("agreement already terminated")
	ErrNotFullySigned     = errors.New("agreement is not fully signed")
	ErrContractNotActive  = errors.New("ledger contract is not active")
	ErrAmountMismatch     = errors.New("payment amount does not match ledger terms")
	ErrInvalidPaymentKind = errors.New("unknown payment kind")
	ErrDateInPast         = errors.New("simulated date is in the past")
	ErrInvalidDateFormat  = errors.New("invalid date format")
)
