package crawler

import (
	"time"

	"github.com/nao1215/ldcrawl/internal/fact"
	"github.com/nao1215/ldcrawl/internal/operation"
)

// Status is the outcome of a completed fetch.
type Status int

const (
	// StatusOK means the response had a status below 400 and its body was
	// converted to facts.
	StatusOK Status = iota
	// StatusClientError means a 4xx response.
	StatusClientError
	// StatusServerError means a 5xx response.
	StatusServerError
	// StatusTransportError means no response was received.
	StatusTransportError
	// StatusUnsupportedRepresentation means an OK body could not be
	// converted under its declared content type.
	StatusUnsupportedRepresentation
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusClientError:
		return "CLIENT_ERROR"
	case StatusServerError:
		return "SERVER_ERROR"
	case StatusTransportError:
		return "TRANSPORT_ERROR"
	case StatusUnsupportedRepresentation:
		return "UNSUPPORTED_REPRESENTATION"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of Status.String. It reports false for
// unknown names.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses() {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []Status {
	return []Status{
		StatusOK,
		StatusClientError,
		StatusServerError,
		StatusTransportError,
		StatusUnsupportedRepresentation,
	}
}

// fromOperation maps an operation status onto a resource status.
func fromOperation(s operation.Status) Status {
	switch s {
	case operation.StatusOK:
		return StatusOK
	case operation.StatusClientError:
		return StatusClientError
	case operation.StatusServerError:
		return StatusServerError
	default:
		return StatusTransportError
	}
}

// Resource is the result of one completed fetch.
//
// A Resource is built once by the crawler and shared read-only with every
// listener. Listeners must not modify Representation.
type Resource struct {
	// URI is the absolute URI passed to Get.
	URI string

	// ContentType is the response Content-Type, or "" when no response
	// was received.
	ContentType string

	// Representation holds the facts parsed from the body. It is never nil
	// and is empty unless Status is StatusOK.
	Representation fact.Collection

	Status Status

	// StatusCode is the HTTP status code, or 0 on transport failure.
	StatusCode int

	// Err explains a TRANSPORT_ERROR or UNSUPPORTED_REPRESENTATION status.
	Err error

	FetchedAt time.Time
	Duration  time.Duration

	// RequestID correlates the resource with crawler log lines.
	RequestID string
}

// OK reports whether the resource was fetched and parsed successfully.
func (r Resource) OK() bool {
	return r.Status == StatusOK
}
