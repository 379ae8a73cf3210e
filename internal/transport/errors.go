package transport

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is
	// not in "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// configured size cap.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrNilRequest is returned when Do is called without a request.
	ErrNilRequest = errors.New("request is nil")
)
