package provider

import "fmt"

// Kind discriminates the shared error taxonomy every provider and the
// registry surface to callers (spec §7).
type Kind string

const (
	KindProviderError     Kind = "provider-error"
	KindTimeout           Kind = "timeout"
	KindUnavailable       Kind = "unavailable"
	KindNotFound          Kind = "not-found"
	KindAuthFailed        Kind = "auth-failed"
	KindRateLimit         Kind = "rate-limit"
	KindInvalidURI        Kind = "invalid-uri"
	KindUnknownProvider   Kind = "unknown-provider"
	KindAlreadyRegistered Kind = "already-registered"
)

// Error is the shared error type across the provider contract and the
// registry: a discriminator plus enough context for a caller to decide
// whether to retry.
type Error struct {
	Kind       Kind
	Provider   string
	Message    string
	StatusCode int
	RetryAfter int64 // milliseconds; only meaningful for KindRateLimit
	Cause      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewProviderError(provider, message string, statusCode int, cause error) *Error {
	return &Error{Kind: KindProviderError, Provider: provider, Message: message, StatusCode: statusCode, Cause: cause}
}

func NewTimeout(provider, message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Message: message, Cause: cause}
}

func NewUnavailable(provider, message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Provider: provider, Message: message, Cause: cause}
}

func NewNotFound(provider, message string) *Error {
	return &Error{Kind: KindNotFound, Provider: provider, Message: message}
}

func NewAuthFailed(provider, message string, statusCode int) *Error {
	return &Error{Kind: KindAuthFailed, Provider: provider, Message: message, StatusCode: statusCode}
}

func NewRateLimit(provider, message string, retryAfterMs int64) *Error {
	return &Error{Kind: KindRateLimit, Provider: provider, Message: message, RetryAfter: retryAfterMs, StatusCode: 429}
}

func NewInvalidURI(message string) *Error {
	return &Error{Kind: KindInvalidURI, Message: message}
}

func NewUnknownProvider(label string) *Error {
	return &Error{Kind: KindUnknownProvider, Message: fmt.Sprintf("unknown provider %q", label)}
}

func NewAlreadyRegistered(label string) *Error {
	return &Error{Kind: KindAlreadyRegistered, Message: fmt.Sprintf("provider %q already registered", label)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == k
}
