package failure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a Failure independently of its transport status code.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindPrecondition      Kind = "precondition"
	KindConcurrency       Kind = "concurrency"
	KindVersionConflict   Kind = "version_conflict"
	KindPaymentMismatch   Kind = "payment_mismatch"
	KindStore             Kind = "store"
	KindTemplate          Kind = "template"
	KindDelivery          Kind = "delivery"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Code    int      `json:"code"`
	Kind    Kind     `json:"kind"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	cause   error
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Kind: KindForbidden, Message: "You don't have the required permissions"}

// Error returns the error message.
func (e *Failure) Error() string {
	return e.Message
}

// Unwrap exposes the infrastructure error a store or delivery failure was built from.
func (e *Failure) Unwrap() error {
	return e.cause
}

// BadRequest returns a new Failure with code for bad requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Kind:    KindBadRequest,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure with code for bad requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: msg,
	}
}

// Validation returns a failure listing every violated field.
func Validation(fields []string, messages []string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Kind:    KindValidation,
		Message: "validation failed: " + strings.Join(messages, "; "),
		Fields:  fields,
	}
}

// InvalidTransition returns a failure for a lifecycle move outside the allowed edges.
func InvalidTransition(from, to string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("transition from %s to %s is not allowed", from, to),
	}
}

// Precondition returns a failure for an allowed edge whose guard is not satisfied.
func Precondition(msg string) error {
	return &Failure{
		Code:    http.StatusPreconditionFailed,
		Kind:    KindPrecondition,
		Message: msg,
	}
}

// Concurrency returns a failure for a compare-and-swap that kept losing.
func Concurrency(msg string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindConcurrency,
		Message: msg,
	}
}

// VersionConflict returns the store's answer to a stale expected version.
func VersionConflict(entityName string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindVersionConflict,
		Message: entityName + " was modified concurrently",
	}
}

func PaymentMismatch(msg string) error {
	return &Failure{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindPaymentMismatch,
		Message: msg,
	}
}

// Store wraps an infrastructure error from a persistence call.
func Store(err error) error {
	if err == nil {
		return nil
	}

	var fail *Failure
	if errors.As(err, &fail) {
		return err
	}

	return &Failure{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindStore,
		Message: err.Error(),
		cause:   err,
	}
}

func Template(msg string) error {
	return &Failure{
		Code:    http.StatusInternalServerError,
		Kind:    KindTemplate,
		Message: msg,
	}
}

// Delivery wraps a channel send error.
func Delivery(err error) error {
	if err == nil {
		return nil
	}

	return &Failure{
		Code:    http.StatusBadGateway,
		Kind:    KindDelivery,
		Message: err.Error(),
		cause:   err,
	}
}

// Unauthorized returns a new Failure with code for unauthorized requests.
func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Kind:    KindUnauthorized,
		Message: msg,
	}
}

// InternalError returns a new Failure with code for internal error and message derived from an error interface.
func InternalError(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusInternalServerError,
			Kind:    KindInternal,
			Message: err.Error(),
			cause:   err,
		}
	}

	return nil
}

// NotFound returns a new Failure with code for entity not found.
func NotFound(entityName string) error {
	return &Failure{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: entityName,
	}
}

// Conflict returns a new Failure with code for conflict situations.
func Conflict(message string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Kind:    KindConflict,
		Message: message,
	}
}

func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Kind:    KindForbidden,
		Message: msg,
	}
}

// As returns the Failure err wraps, if any.
func As(err error) (*Failure, bool) {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail, true
	}

	return nil, false
}

// GetCode returns the error code of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetKind returns the kind of a wrapped Failure, or KindInternal.
func GetKind(err error) Kind {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Kind
	}

	return KindInternal
}

// IsKind reports whether err wraps a Failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Kind == kind
	}

	return false
}
