package checkout

import "errors"

var (
	ErrUnauthenticated    = errors.New("sign in required to check out")
	ErrProfilePending     = errors.New("delivery profile not completed")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrNoFlow             = errors.New("no checkout in progress")
)
