package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMaxToolRounds is returned when the model keeps requesting tools.
var ErrMaxToolRounds = errors.New("too many tool rounds")

// ErrorKind is the coarse classification of a provider failure.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindQuota     ErrorKind = "quota"
	KindNetwork   ErrorKind = "network"
	KindTimeout   ErrorKind = "timeout"
	KindRequest   ErrorKind = "request"
	KindUnknown   ErrorKind = "unknown"
)

// EngineError wraps provider errors with classification metadata.
type EngineError struct {
	Err        error
	Kind       ErrorKind
	HTTPStatus int    // HTTP status code if applicable
	RetryAfter string // Retry-After header value if present
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("engine error: %s", e.Kind)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Hint returns a short explanation suitable for the console.
func (e *EngineError) Hint() string {
	switch e.Kind {
	case KindAuth:
		return "the model endpoint rejected the API key"
	case KindRateLimit:
		if e.RetryAfter != "" {
			return fmt.Sprintf("rate limited by the model endpoint (retry after %s)", e.RetryAfter)
		}
		return "rate limited by the model endpoint"
	case KindQuota:
		return "the model account has no remaining quota"
	case KindNetwork:
		return "the model endpoint could not be reached"
	case KindTimeout:
		return "the model endpoint timed out"
	case KindRequest:
		return "the model endpoint rejected the request"
	default:
		return ""
	}
}

// ClassifyLLMError classifies a provider error from its status or, failing
// that, its message.
func ClassifyLLMError(err error, httpStatus int) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}

	switch {
	case httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden:
		return KindAuth
	case httpStatus == http.StatusTooManyRequests:
		return KindRateLimit
	case httpStatus == http.StatusPaymentRequired:
		return KindQuota
	case httpStatus == http.StatusGatewayTimeout || httpStatus == http.StatusRequestTimeout:
		return KindTimeout
	case httpStatus >= 500:
		return KindNetwork
	case httpStatus >= 400:
		return KindRequest
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "401", "403", "unauthorized", "forbidden", "invalid api key", "authentication failed"):
		return KindAuth
	case containsAny(errStr, "429", "rate limit", "too many requests"):
		return KindRateLimit
	case containsAny(errStr, "402", "quota", "billing", "payment required"):
		return KindQuota
	case containsAny(errStr, "timeout", "deadline exceeded"):
		return KindTimeout
	case containsAny(errStr, "connection reset", "connection refused", "no such host", "network", "dns", "eof"):
		return KindNetwork
	case containsAny(errStr, "400", "bad request", "invalid request", "context length", "maximum context length"):
		return KindRequest
	}
	return KindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WrapLLMError wraps an LLM provider error with classification metadata.
func WrapLLMError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	return &EngineError{
		Err:        err,
		Kind:       ClassifyLLMError(err, httpStatus),
		HTTPStatus: httpStatus,
		RetryAfter: retryAfter,
	}
}

// ToolValidationError indicates that tool arguments failed JSON schema validation.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}
