package transport

import (
	"context"
	"net/http"
)

// Request describes one outbound HTTP exchange.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// URL is the absolute target URI.
	URL string

	// Header carries request header fields. It may be nil.
	Header http.Header

	// Body is the raw request body. It may be nil.
	Body []byte
}

// Response is the transport-level result of an exchange.
// Body has already been decoded from any Content-Encoding.
type Response struct {
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte

	// FinalURL is the URL after redirects.
	FinalURL string
}

// Transport performs a single request. A returned error means the exchange
// failed at the network level (DNS, connect, TLS, timeout, oversized body);
// any HTTP status, including 4xx and 5xx, is a successful exchange.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do implements Transport.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
