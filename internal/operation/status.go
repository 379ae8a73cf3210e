package operation

// Status is the outcome class of an HTTP exchange.
type Status int

const (
	// StatusOK covers every status code below 400.
	StatusOK Status = iota
	// StatusClientError covers 4xx responses.
	StatusClientError
	// StatusServerError covers 5xx responses.
	StatusServerError
	// StatusTransportError means no HTTP response was received.
	StatusTransportError
)

// String returns the status name used in logs and reports.
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
	default:
		return "UNKNOWN"
	}
}

// StatusFromCode maps an HTTP status code to its class.
//
// Informational and redirect codes count as OK: redirects are followed by
// the transport, so a 3xx only surfaces when the redirect limit is hit or
// the response has no Location, and its body is still a usable answer.
// Codes of 600 and above are treated as server errors.
func StatusFromCode(code int) Status {
	switch {
	case code >= 500:
		return StatusServerError
	case code >= 400:
		return StatusClientError
	default:
		return StatusOK
	}
}
