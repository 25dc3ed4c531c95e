package share

import (
	"net/http"
	"time"
)

// ConfigureDefaultClient bounds the default HTTP client, which outgoing
// verification requests (reCAPTCHA) go through.
func ConfigureDefaultClient(timeout time.Duration) {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   16,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		IdleConnTimeout:       30 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	http.DefaultClient.Timeout = timeout
	http.DefaultClient.Transport = tr
}
