package operation

import "errors"

var (
	// ErrMalformedRequest is returned for invalid caller input, such as a
	// missing method or a relative target URI. It is detected before any
	// network activity.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrResponseNotReady is returned by Response before SendRequest has
	// completed.
	ErrResponseNotReady = errors.New("response not ready: request has not completed")

	// ErrAlreadySent is returned when SendRequest is called a second time.
	ErrAlreadySent = errors.New("request already sent")
)
