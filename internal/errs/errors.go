package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and branching.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInsufficientInventory
	KindAlreadyUsed
	KindPromoExpired
	KindPromoNotFound
	KindOrderMismatch
	KindSignatureMismatch
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrEventNotFound   = &Error{Kind: KindNotFound, Message: "Event not found"}
	ErrOrderNotFound   = &Error{Kind: KindNotFound, Message: "Order not found"}
	ErrTicketNotFound  = &Error{Kind: KindNotFound, Message: "Ticket not found"}
	ErrPaymentNotFound = &Error{Kind: KindNotFound, Message: "Payment not found"}
	ErrPromoNotFound   = &Error{Kind: KindPromoNotFound, Message: "Invalid or inactive promo code"}
	ErrPromoExpired    = &Error{Kind: KindPromoExpired, Message: "Promo code has expired"}
	ErrAlreadyUsed     = &Error{Kind: KindAlreadyUsed, Message: "You have already used this promo code"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Validationf(format string, args ...interface{}) *Error {
	return Newf(KindValidation, format, args...)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func InsufficientInventory(ticketName string) *Error {
	return Newf(KindInsufficientInventory, "Not enough tickets available for %s", ticketName)
}

// KindOf extracts the kind from anywhere in the chain. Unclassified
// errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message. Unclassified errors get a
// generic one so internals stay out of responses.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindOrderMismatch, KindSignatureMismatch,
		KindInsufficientInventory, KindAlreadyUsed, KindPromoExpired:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindPromoNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
