package viewmodel

import (
	"errors"
	"strings"

	"storefront/client"
)

var (
	// ErrSuperseded is returned by a fetch whose response arrived after a
	// newer request was issued. Nothing was applied.
	ErrSuperseded = errors.New("superseded by a newer request")

	ErrNotPermitted     = errors.New("action not permitted")
	ErrUnauthenticated  = errors.New("sign in required")
	ErrLineBusy         = errors.New("cart line is already updating")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInProgress = errors.New("order submission already in progress")
)

// ValidationError is a local, pre-submit rejection. It is shown inline next
// to Field and never posted as a notification.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage returns the text to show a shopper for err. Server messages of
// semantic failures are shown verbatim; anything else gets fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if ae, ok := client.AsAPIError(err); ok && strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return fallback
}
