package apperror

import "errors"

// Kind classifies a failed invocation for callers and transports.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindValidation    Kind = "validation"
	KindPayment       Kind = "payment"
)

// Error is a domain failure carrying the reason string surfaced to callers.
// Sentinels are compared by identity with errors.Is.
type Error struct {
	Kind   Kind
	Reason string
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func (e *Error) Error() string {
	return e.Reason
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// ReasonOf returns the reason string of err, falling back to err.Error().
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return err.Error()
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
