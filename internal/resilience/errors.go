// Package resilience provides the retry executor and the distinguished error
// kinds shared by the geocoding adapters and the address resolver.
package resilience

import "errors"

// RateLimitError signals that a provider rejected a call because its quota
// was exhausted. It is the only error kind the retry executor retries; after
// the final attempt it propagates unchanged so callers can queue the work or
// surface the failure.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return e.Provider + ": rate limit exceeded"
	}
	return e.Provider + ": rate limit exceeded: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as a provider rate-limit signal.
func NewRateLimitError(provider string, err error) *RateLimitError {
	return &RateLimitError{Provider: provider, Err: err}
}

// IsRateLimit reports whether err (or any error in its chain) is a
// RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// TransportError wraps a generic network or provider failure. The pipeline
// never retries it; adapters may implement their own lower-level retry.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Provider + ": transport failure"
	}
	return e.Provider + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a non-retryable provider failure.
func NewTransportError(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: err}
}

// IsTransport reports whether err (or any error in its chain) is a
// TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
