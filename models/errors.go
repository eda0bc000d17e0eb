package models

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is matched by errors.Is for any UnsupportedProviderError.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// UnsupportedProviderError reports a provider name that is not registered.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("provider %s not supported", e.Name)
}

func (e *UnsupportedProviderError) Is(target error) bool {
	return target == ErrUnsupportedProvider
}

// ProviderRequestFailedError wraps a transport or API failure from an
// external model API. Requests are attempted once; callers decide on retries.
type ProviderRequestFailedError struct {
	Provider string
	Err      error
}

func (e *ProviderRequestFailedError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderRequestFailedError) Unwrap() error {
	return e.Err
}

// RequestFailed builds a ProviderRequestFailedError for provider.
func RequestFailed(provider string, err error) error {
	return &ProviderRequestFailedError{Provider: provider, Err: err}
}

// APIError is the error body of a non-2xx provider response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// ErrNoMessages is returned by SendRequest when called without messages.
var ErrNoMessages = errors.New("messages must not be empty")
