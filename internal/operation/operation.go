package operation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/ldcrawl/internal/fact"
	"github.com/nao1215/ldcrawl/internal/representation"
	"github.com/nao1215/ldcrawl/internal/transport"
)

// Fields describes the request an Operation sends.
type Fields struct {
	// Method is the HTTP method. It is required.
	Method string

	// Headers are extra request header fields.
	Headers map[string]string

	// Payload is serialized through the registry when Body is nil.
	Payload fact.Collection

	// Body is sent as-is and takes precedence over Payload.
	Body []byte

	// ContentType is the media type of the outbound body. When empty and
	// Payload is used, the payload's structural tag picks the type.
	ContentType string
}

// Response is the outcome of a completed Operation.
type Response struct {
	Status      Status
	StatusCode  int
	ContentType string
	Header      http.Header

	// Body is the raw response body.
	Body []byte

	// Payload holds the facts parsed from Body. It is never nil and is
	// empty when the body is absent, unparsable, or the status is not OK.
	Payload fact.Collection

	// PayloadErr records why an OK body could not be parsed. It wraps
	// representation.ErrUnsupportedRepresentation.
	PayloadErr error

	// Err records the transport failure for StatusTransportError.
	Err error

	// FinalURL is the URL that produced the response, after redirects.
	FinalURL string

	// Duration is the time spent in the transport.
	Duration time.Duration
}

// Operation is a single HTTP request/response exchange.
//
// Design decision: We report transport failures inside Response instead of
// returning them from SendRequest because:
//  1. Callers that fan out requests want one uniform value per request
//  2. A failed fetch is an expected outcome when crawling, not a bug
//  3. Only problems the caller can fix (bad input) deserve an error return
type Operation struct {
	target    string
	fields    Fields
	transport transport.Transport
	registry  *representation.Registry
	logger    *slog.Logger

	mu       sync.Mutex
	sent     bool
	response *Response
}

// Option configures an Operation.
type Option func(*Operation)

// WithTransport sets the transport used to send the request.
func WithTransport(t transport.Transport) Option {
	return func(o *Operation) {
		o.transport = t
	}
}

// WithRegistry sets the registry used to serialize the payload and parse
// the response. The default is representation.Default().
func WithRegistry(r *representation.Registry) Option {
	return func(o *Operation) {
		o.registry = r
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *Operation) {
		o.logger = l
	}
}

// New creates an Operation against an absolute target URI.
// It fails with ErrMalformedRequest when the method is missing or the
// target is not absolute.
func New(target string, fields Fields, opts ...Option) (*Operation, error) {
	if strings.TrimSpace(fields.Method) == "" {
		return nil, fmt.Errorf("%w: method is required", ErrMalformedRequest)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: target %q is not an absolute URI", ErrMalformedRequest, target)
	}

	o := &Operation{
		target: target,
		fields: fields,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = representation.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.transport == nil {
		// New without options cannot fail
		o.transport, _ = transport.New() //nolint:errcheck
	}
	return o, nil
}

// Target returns the request URI.
func (o *Operation) Target() string {
	return o.target
}

// SendRequest performs exactly one request attempt.
//
// It returns an error only when the request cannot be built: the operation
// was already sent, or the payload cannot be serialized. Transport
// failures are recorded in the Response as StatusTransportError.
func (o *Operation) SendRequest(ctx context.Context) error {
	o.mu.Lock()
	if o.sent {
		o.mu.Unlock()
		return ErrAlreadySent
	}
	o.sent = true
	o.mu.Unlock()

	req, err := o.buildRequest()
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := o.transport.Do(ctx, req)
	resp := &Response{Payload: fact.Empty(), Duration: time.Since(start)}

	if err != nil {
		resp.Status = StatusTransportError
		resp.Err = err
		o.logger.Debug("request failed",
			"method", req.Method,
			"uri", o.target,
			"error", err,
		)
	} else {
		resp.StatusCode = raw.StatusCode
		resp.Status = StatusFromCode(raw.StatusCode)
		resp.ContentType = raw.ContentType
		resp.Header = raw.Header
		resp.Body = raw.Body
		resp.FinalURL = raw.FinalURL
		o.parsePayload(resp)

		o.logger.Debug("request completed",
			"method", req.Method,
			"uri", o.target,
			"status", resp.Status.String(),
			"code", resp.StatusCode,
			"content_type", resp.ContentType,
			"duration", resp.Duration,
		)
	}

	o.mu.Lock()
	o.response = resp
	o.mu.Unlock()
	return nil
}

// Response returns the completed response, or ErrResponseNotReady.
func (o *Operation) Response() (*Response, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.response == nil {
		return nil, ErrResponseNotReady
	}
	return o.response, nil
}

// buildRequest assembles the transport request, serializing the payload
// when needed.
func (o *Operation) buildRequest() (*transport.Request, error) {
	header := make(http.Header, len(o.fields.Headers)+2)
	for k, v := range o.fields.Headers {
		header.Set(k, v)
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", o.registry.Accept())
	}

	body := o.fields.Body
	contentType := o.fields.ContentType

	if body == nil && len(o.fields.Payload) > 0 {
		var buf bytes.Buffer
		if contentType != "" {
			if err := o.registry.SerializeAs(&buf, o.fields.Payload, o.target, contentType); err != nil {
				return nil, fmt.Errorf("failed to serialize payload: %w", err)
			}
		} else {
			ct, err := o.registry.ContentTypeFor(o.fields.Payload.Tag())
			if err != nil {
				return nil, fmt.Errorf("failed to serialize payload: %w", err)
			}
			if err := o.registry.Serialize(&buf, o.fields.Payload, o.target); err != nil {
				return nil, fmt.Errorf("failed to serialize payload: %w", err)
			}
			contentType = ct
		}
		body = buf.Bytes()
	}

	if body != nil && contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	return &transport.Request{
		Method: strings.ToUpper(o.fields.Method),
		URL:    o.target,
		Header: header,
		Body:   body,
	}, nil
}

// parsePayload converts an OK body into facts. Error statuses keep an
// empty payload.
func (o *Operation) parsePayload(resp *Response) {
	if resp.Status != StatusOK || len(resp.Body) == 0 {
		return
	}
	base := resp.FinalURL
	if base == "" {
		base = o.target
	}
	facts, err := o.registry.Deserialize(bytes.NewReader(resp.Body), base, resp.ContentType)
	if err != nil {
		resp.PayloadErr = err
		return
	}
	resp.Payload = facts
}
