package ai

import (
	"errors"
	"fmt"
)

// ErrDisabled indicates no provider is configured for outbound calls.
var ErrDisabled = errors.New("ai provider disabled")

// ErrInvalidInput flags a precondition failure detected before any provider
// call is made.
var ErrInvalidInput = errors.New("invalid reasoning input")

// ErrorKind classifies fatal reasoning pipeline failures.
type ErrorKind string

const (
	// KindMalformedOutput means the provider text was not a bare JSON object.
	KindMalformedOutput ErrorKind = "malformed_output"
	// KindInvalidJSON means the text between braces failed to decode.
	KindInvalidJSON ErrorKind = "invalid_json"
	// KindSchemaViolation means the object decoded but broke the response contract.
	KindSchemaViolation ErrorKind = "schema_violation"
	// KindProviderFailure means the provider call itself errored or came back blank.
	KindProviderFailure ErrorKind = "provider_failure"
)

// ResponseError is a fatal pipeline failure. SchemaViolation errors carry the
// full aggregated issue list, not just the first violation found.
type ResponseError struct {
	Kind    ErrorKind
	Message string
	Attempt int
	Issues  []ValidationIssue
}

func (e *ResponseError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("%s (attempt %d): %s", e.Kind, e.Attempt, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a ResponseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Kind == kind
}
