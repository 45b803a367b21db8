package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
)

// ErrorKind classifies provider failures for retry and fallback decisions.
type ErrorKind string

const (
	// KindUnavailable: no credentials or provider misconfigured.
	KindUnavailable ErrorKind = "unavailable"
	// KindTransient: timeouts, network errors, 408, 429 and 5xx. Retried.
	KindTransient ErrorKind = "transient"
	// KindSchema: the response could not be parsed into the expected shape.
	KindSchema ErrorKind = "schema"
	// KindFatal: auth failures and other 4xx. Not retried.
	KindFatal ErrorKind = "fatal"
)

// ProviderError is returned by every call into a provider.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a provider error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

func unavailable(provider string, format string, args ...any) *ProviderError {
	return &ProviderError{Kind: KindUnavailable, Provider: provider, Err: fmt.Errorf(format, args...)}
}

func schemaError(provider string, err error) *ProviderError {
	return &ProviderError{Kind: KindSchema, Provider: provider, Err: err}
}

// classify maps an SDK or transport error to a ProviderError.
func classify(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := KindFatal
		switch code := apiErr.StatusCode; {
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
			kind = KindTransient
		}
		return &ProviderError{Kind: kind, Provider: provider, StatusCode: apiErr.StatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTransient, Provider: provider, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ProviderError{Kind: KindTransient, Provider: provider, Err: err}
	}
	return &ProviderError{Kind: KindFatal, Provider: provider, Err: err}
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+`)
	secretKeyRE   = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\s,;"]+)`)
)

// Redact strips credentials from a message before it is logged or stored.
func Redact(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = secretKeyRE.ReplaceAllString(out, "[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
