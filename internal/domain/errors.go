package domain

import "errors"

// Sentinel errors for every way an engine operation can be rejected.
// All are synchronous, non-retryable rejections of the single
// operation that raised them; no partial state survives a rejection.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrNotOrderOwner          = errors.New("not order owner")
	ErrOrderNotOpen           = errors.New("order not open")
	ErrUnknownOrder           = errors.New("unknown order")
	ErrUnknownContract        = errors.New("unknown contract")
	ErrContractNotExpired     = errors.New("contract not yet expired")
	ErrContractNotOverdue     = errors.New("contract not overdue for liquidation")
	ErrAlreadySettled         = errors.New("contract already settled")
	ErrNotAdministrator       = errors.New("not administrator")

	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInternalError = errors.New("internal error")
)

// AppError carries an HTTP status alongside the underlying cause.
type AppError struct {
	Code    int    // HTTP status code
	Message string // user-facing reason
	Err     error  // original error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: 404, Message: msg, Err: ErrNotFound}
}

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: 400, Message: msg, Err: ErrInvalidInput}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Code: 500, Message: msg, Err: err}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: 409, Message: msg, Err: ErrAlreadyExists}
}
