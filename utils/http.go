// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client for outbound provider calls. Each call is also
// bounded by its own context deadline; timeout is the hard ceiling.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
