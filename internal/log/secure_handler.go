package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// credentialKeys are attribute keys that always carry credentials. Keys are
// compared after normalization, so "Set-Cookie" and "set_cookie" are the
// same entry.
var credentialKeys = map[string]struct{}{
	"authorization":       {},
	"proxy_authorization": {},
	"cookie":              {},
	"set_cookie":          {},
	"x_api_key":           {},
	"x_auth_token":        {},
	"api_key":             {},
	"apikey":              {},
	"session":             {},
	"session_id":          {},
	"sessionid":           {},
	"jsessionid":          {},
	"sid":                 {},
}

// credentialFragments mark a key as sensitive when found anywhere in it.
// "key" is not listed: cache_key, sort_key and primary_key are harmless.
var credentialFragments = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie",
}

// valueRule recognizes a credential by the shape of the value alone.
type valueRule struct {
	name string
	re   *regexp.Regexp
}

var valueRules = []valueRule{
	{"jwt", regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)},
	{"bearer", regexp.MustCompile(`(?i)^bearer\s+.+`)},
	{"basic", regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`)},
	{"opaque api key", regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`)},
	{"aws access key", regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`)},
	{"pem private key", regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`)},
}

// uriWithUserinfo finds URIs that carry a userinfo part.
var uriWithUserinfo = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://[^\s/@"'<>]+@[^\s"'<>]*`)

// SecureHandler wraps an slog.Handler and scrubs credentials from every
// record before it reaches the wrapped handler.
//
// Crawls carry secrets in three places: configured cookies and headers,
// URIs with embedded passwords, and error strings that quote those URIs.
// All three are covered here so that call sites can log requests freely.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next falls back to the default logger's
// handler.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactURIs(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(scrub(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. The attributes are scrubbed once, here.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = scrub(a)
	}
	return &SecureHandler{next: h.next.WithAttrs(scrubbed)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

// scrub returns a with its value masked or redacted as needed. Groups are
// scrubbed member by member.
func scrub(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		members := v.Group()
		scrubbed := make([]slog.Attr, len(members))
		for i, m := range members {
			scrubbed[i] = scrub(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubbed...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	return slog.Attr{Key: a.Key, Value: scrubValue(v)}
}

// scrubValue masks credential-shaped strings and redacts URI passwords in
// strings, URLs, headers, errors, and Stringers.
func scrubValue(v slog.Value) slog.Value {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if isSensitiveValue(s) {
			return slog.StringValue(MaskValue)
		}
		return slog.StringValue(redactURIs(s))

	case slog.KindAny:
		switch x := v.Any().(type) {
		case *url.URL:
			if x != nil {
				return slog.StringValue(x.Redacted())
			}
		case http.Header:
			return slog.AnyValue(scrubHeader(x))
		case error:
			return redactedIfChanged(v, x.Error())
		case fmt.Stringer:
			return redactedIfChanged(v, x.String())
		}
	}
	return v
}

// redactedIfChanged keeps the original value unless text held a URI
// password, so that typed values still render the usual way.
func redactedIfChanged(orig slog.Value, text string) slog.Value {
	if redacted := redactURIs(text); redacted != text {
		return slog.StringValue(redacted)
	}
	return orig
}

// scrubHeader returns a copy of h with credential headers masked.
func scrubHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if isSensitiveKey(name) {
			out[name] = []string{MaskValue}
			continue
		}
		out[name] = values
	}
	return out
}

// isSensitiveKey reports whether an attribute or header name denotes a
// credential.
func isSensitiveKey(key string) bool {
	norm := strings.ReplaceAll(strings.ToLower(key), "-", "_")
	if _, ok := credentialKeys[norm]; ok {
		return true
	}
	for _, frag := range credentialFragments {
		if strings.Contains(norm, frag) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether a value looks like a credential
// regardless of its key.
func isSensitiveValue(value string) bool {
	for _, rule := range valueRules {
		if rule.re.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURIs replaces the password of every URI in s that carries one.
// URIs with a user name only are left unchanged.
func redactURIs(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return uriWithUserinfo.ReplaceAllStringFunc(s, func(raw string) string {
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		if _, ok := u.User.Password(); !ok {
			return raw
		}
		return u.Redacted()
	})
}

// NewSecureLogger returns a text logger that scrubs credentials. verbose
// lowers the level from Warn to Debug.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
