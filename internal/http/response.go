package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TimingInfo is the phase breakdown of one request
type TimingInfo struct {
	// StartTime is when the request started
	StartTime time.Time

	// DNSLookupTime is the time spent resolving the host
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent in the TLS handshake (HTTPS only)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte is the time from the last completed phase to the first response byte
	TimeToFirstByte time.Duration

	// ContentTransferTime is the time spent reading the body
	ContentTransferTime time.Duration

	// TotalTime is the time from start until the body was fully read
	TotalTime time.Duration

	// ConnectionReused is true when a pooled connection served the request
	ConnectionReused bool
}

// Response represents a fully read HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Timing     TimingInfo
}

// IsJSON reports whether the body is well-formed JSON
func (r *Response) IsJSON() bool {
	return gjson.ValidBytes(r.Body)
}

// JSONValue looks up path in the JSON body. Paths may be written in gjson
// syntax (data.items.0.id) or as simple JSONPath ($.data.items[0].id).
func (r *Response) JSONValue(path string) (gjson.Result, bool) {
	result := gjson.GetBytes(r.Body, toGjsonPath(path))
	return result, result.Exists()
}

// toGjsonPath converts a simple JSONPath expression to gjson syntax
func toGjsonPath(path string) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}

	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	// Bracketed names: ['name'] and ["name"]
	path = strings.NewReplacer("['", ".", "']", "", `["`, ".", `"]`, "").Replace(path)

	// Index access: [0] becomes .0
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)

	return strings.TrimPrefix(path, ".")
}
