package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askgov/askgov/internal/conversation"
)

// Kind classifies a failure into a closed set the client layer can map to
// fixed user-facing strings. Raw error details never leave the server.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidRequest
	KindNotFound
	KindAccessDenied
	KindThrottled
	KindUnavailable
)

// String returns the wire identifier for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindThrottled:
		return "throttled"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// UserMessage returns the fixed client-facing text for the kind.
func UserMessage(k Kind) string {
	switch k {
	case KindValidation:
		return "Your request is missing required information. Please check it and try again."
	case KindInvalidRequest:
		return "That request could not be understood. Please try again."
	case KindNotFound:
		return "The requested record could not be found."
	case KindAccessDenied:
		return "You don't have permission to do that."
	case KindThrottled:
		return "You're sending messages too quickly. Please wait a moment and try again."
	case KindUnavailable:
		return "The service is temporarily unavailable. Please try again in a few minutes."
	default:
		return "Something went wrong while processing your message. Please try again."
	}
}

// ServiceError carries an operation name and a classification alongside the
// underlying cause. The cause is for server logs only.
type ServiceError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Classify wraps err in a ServiceError, deriving the kind from known
// sentinels first and transport error text as a fallback.
func Classify(op string, err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return &ServiceError{Op: op, Kind: svcErr.Kind, Err: err}
	}

	kind := KindInternal
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, conversation.ErrInvalidFeedback):
		kind = KindValidation
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindUnavailable
	case containsAny(err.Error(), "rate limit", "quota exceeded", "429", "resource_exhausted"):
		kind = KindThrottled
	case containsAny(err.Error(), "403", "permission_denied", "permission denied", "access denied", "forbidden"):
		kind = KindAccessDenied
	case containsAny(err.Error(), "404", "not_found", "not found"):
		kind = KindNotFound
	case containsAny(err.Error(), "400", "invalid_argument", "invalid argument"):
		kind = KindValidation
	case containsAny(err.Error(), "500", "502", "503", "504", "unavailable", "connection reset", "timeout"):
		kind = KindUnavailable
	}

	return &ServiceError{Op: op, Kind: kind, Err: err}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
