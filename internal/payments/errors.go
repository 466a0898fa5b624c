package payments

import "errors"

var (
	ErrNotFound           = errors.New("payment not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrForbidden          = errors.New("you do not own this booking")
	ErrAlreadyPaid        = errors.New("this booking has already been paid for")
	ErrNotCancellable     = errors.New("only pending payments can be cancelled")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment verification failed")
)
