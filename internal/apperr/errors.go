package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a uniqueness or version conflict (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Delivery lifecycle rejections. All of them are recoverable and leave state untouched.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownItem       = errors.New("unknown item")
	ErrAlreadyCollected  = errors.New("item already collected")
	ErrNotAllCollected   = errors.New("not all items collected")
	ErrDeliveryNotActive = errors.New("delivery not active")
	ErrCodeMismatch      = errors.New("validation code mismatch")
	ErrOrderMismatch     = errors.New("validation order mismatch")
	ErrAlreadyValidated  = errors.New("delivery already validated")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidTransition, "invalid_transition"},
	{ErrUnknownItem, "unknown_item"},
	{ErrAlreadyCollected, "already_collected"},
	{ErrNotAllCollected, "not_all_collected"},
	{ErrDeliveryNotActive, "delivery_not_active"},
	{ErrCodeMismatch, "code_mismatch"},
	{ErrOrderMismatch, "order_mismatch"},
	{ErrAlreadyValidated, "already_validated"},
	{ErrInvalid, "invalid"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
}

// Code returns a stable machine-readable code for err, "internal" when err is not
// part of the taxonomy and "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
