package certificate

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error carries a client-facing message and the kind used to pick a response status.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) holds for every
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingFields  = &Error{Kind: KindValidation, Message: "Missing required fields"}
	ErrMissingAddress = &Error{Kind: KindValidation, Message: "Missing certificate address"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "Certificate not found"}
	ErrForbidden      = &Error{Kind: KindForbidden, Message: "Only the issuer can revoke this certificate"}
)

// KindOf reports the kind of err; errors not produced by this package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
