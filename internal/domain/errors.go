package domain

import "errors"

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrSeatAlreadySold         = errors.New("seat is already sold")
	ErrSeatAlreadyBlocked      = errors.New("seat is already blocked")
	ErrUnresolvableSeat        = errors.New("seat identity cannot be resolved")
	ErrPaymentNotConfirmed     = errors.New("payment has not been completed")
	ErrPaymentSessionNotFound  = errors.New("payment session not found")
	ErrMissingSessionMetadata  = errors.New("payment session metadata is missing or malformed")
	ErrPostPaymentConflict     = errors.New("a paid seat has been sold to another buyer")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique redemption code")
	ErrDuplicatePaymentSession = errors.New("a purchase already exists for this payment session")
	ErrDuplicateRedemptionCode = errors.New("redemption code already in use")
	ErrSelectionTooLarge       = errors.New("seat selection does not fit into payment session metadata")
	ErrEmptySelection          = errors.New("at least one seat must be selected")
)
