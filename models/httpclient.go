package models

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds every call to an external model API.
const DefaultRequestTimeout = 30 * time.Second

// NewHTTPClient returns the client providers use for their API calls.
// A zero timeout means DefaultRequestTimeout.
func NewHTTPClient(timeout time.Duration, skipTLSVerify bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
