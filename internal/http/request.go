package http

import (
	"fmt"
	"net/http"
	"net/url"
)

// Request represents a GET request against a fully resolved URL
type Request struct {
	URL         string
	QueryParams url.Values
	Headers     map[string]string
}

// NewRequest creates a new GET request for rawURL
func NewRequest(rawURL string) *Request {
	return &Request{
		URL:         rawURL,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithHeaders adds multiple headers to the request
func (r *Request) WithHeaders(headers map[string]string) *Request {
	for key, value := range headers {
		r.Headers[key] = value
	}
	return r
}

// WithQueryParams sets multiple query parameters on the request
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Set(key, value)
	}
	return r
}

// Build constructs an http.Request from the Request. Query parameters are
// merged into any query already present in the URL.
func (r *Request) Build() (*http.Request, error) {
	reqURL, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if reqURL.Scheme == "" || reqURL.Host == "" {
		return nil, fmt.Errorf("request url must be absolute: %q", r.URL)
	}

	if len(r.QueryParams) > 0 {
		query := reqURL.Query()
		for key, values := range r.QueryParams {
			query[key] = append([]string(nil), values...)
		}
		reqURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, err
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	// Host must be set on the request itself, not in the header map
	if host, ok := r.Headers["Host"]; ok {
		req.Host = host
	}

	return req, nil
}
