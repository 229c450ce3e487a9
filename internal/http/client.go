package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Client is an HTTP client that records a phase breakdown of every request.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithTimeout sets the overall timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// Do executes a request, reads the whole body and returns the response with
// detailed timing information.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build()
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	timing := TimingInfo{
		StartTime: time.Now(),
	}

	var dnsStart, connectStart, tlsHandshakeStart time.Time
	var connectDone bool
	lastPhaseEnd := timing.StartTime

	trace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			now := time.Now()
			timing.DNSLookupTime = now.Sub(dnsStart)
			lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				now := time.Now()
				timing.TCPConnectTime = now.Sub(connectStart)
				connectDone = true
				lastPhaseEnd = now
			}
		},
		TLSHandshakeStart: func() {
			if connectDone {
				tlsHandshakeStart = time.Now()
			}
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err == nil && !tlsHandshakeStart.IsZero() {
				now := time.Now()
				timing.TLSHandshakeTime = now.Sub(tlsHandshakeStart)
				lastPhaseEnd = now
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			timing.ConnectionReused = info.Reused
			if info.Reused {
				lastPhaseEnd = time.Now()
			}
		},
		GotFirstResponseByte: func() {
			// Time to first byte counts from the end of the last phase
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		timing.TotalTime = time.Since(timing.StartTime)
		return &Response{Timing: timing}, err
	}
	defer httpResp.Body.Close()

	contentTransferStart := time.Now()
	body, err := io.ReadAll(httpResp.Body)
	timing.ContentTransferTime = time.Since(contentTransferStart)
	timing.TotalTime = time.Since(timing.StartTime)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
		Timing:     timing,
	}
	return resp, err
}
