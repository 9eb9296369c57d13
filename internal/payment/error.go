package payment

import "errors"

var (
	ErrUnsupportedMethod = errors.New("payment method not supported")
	ErrProfileNotFound   = errors.New("payment profile not found")
	// ErrNoPaymentOption means nothing usable was submitted.
	ErrNoPaymentOption = errors.New("no payment option selected")
	ErrPaymentFailed   = errors.New("payment could not be processed")
	ErrInvalidCatalog  = errors.New("invalid payment catalog")

	ErrTransactionNotFound = errors.New("payment transaction not found")
	// ErrTransactionSettled means a notification tried to move a transaction
	// that already reached a different final state.
	ErrTransactionSettled = errors.New("payment transaction already settled")
	ErrInvalidSignature   = errors.New("invalid notification signature")
	ErrInvalidNotice      = errors.New("invalid payment notification")
	// ErrNoticeIgnored is returned for provider events that do not settle
	// a transaction. Providers should still get a success response.
	ErrNoticeIgnored = errors.New("payment notification ignored")
)
