package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

// TestNew tests transport construction.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		tr, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.maxBodySize != DefaultMaxBodySize {
			t.Errorf("expected default body size, got %d", tr.maxBodySize)
		}
		if tr.client.Timeout != DefaultTimeout {
			t.Errorf("expected default timeout, got %v", tr.client.Timeout)
		}
	})

	t.Run("valid proxy", func(t *testing.T) {
		t.Parallel()

		if _, err := New(WithSOCKS5Proxy("127.0.0.1:9050")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"127.0.0.1", ":9050", "host:", "host:0", "host:70000", "host:abc"} {
			if _, err := New(WithSOCKS5Proxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("%q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})
}

// TestHTTPTransportDo tests request execution against a local server.
func TestHTTPTransportDo(t *testing.T) {
	t.Parallel()

	t.Run("plain body and headers", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "ldcrawl-test" {
				t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("Accept") != "text/plain" {
				t.Errorf("unexpected Accept %q", r.Header.Get("Accept"))
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "hello")
		}))
		defer srv.Close()

		tr, err := New(WithUserAgent("ldcrawl-test"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := tr.Do(context.Background(), &Request{
			URL:    srv.URL,
			Header: http.Header{"Accept": []string{"text/plain"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if resp.ContentType != "text/plain; charset=utf-8" {
			t.Errorf("unexpected content type %q", resp.ContentType)
		}
		if string(resp.Body) != "hello" {
			t.Errorf("unexpected body %q", resp.Body)
		}
	})

	t.Run("error statuses are not transport errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer srv.Close()

		tr, _ := New() //nolint:errcheck
		resp, err := tr.Do(context.Background(), &Request{URL: srv.URL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusGone {
			t.Errorf("expected 410, got %d", resp.StatusCode)
		}
	})

	t.Run("method and body are sent", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body) //nolint:errcheck
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, r.Method+" "+string(data))
		}))
		defer srv.Close()

		tr, _ := New() //nolint:errcheck
		resp, err := tr.Do(context.Background(), &Request{Method: http.MethodPut, URL: srv.URL, Body: []byte("payload")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "PUT payload" {
			t.Errorf("unexpected echo %q", resp.Body)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		tr, _ := New(WithTimeout(2 * time.Second)) //nolint:errcheck
		if _, err := tr.Do(context.Background(), &Request{URL: url}); err == nil {
			t.Error("expected transport error for closed server")
		}
	})

	t.Run("nil request", func(t *testing.T) {
		t.Parallel()

		tr, _ := New() //nolint:errcheck
		if _, err := tr.Do(context.Background(), nil); !errors.Is(err, ErrNilRequest) {
			t.Errorf("expected ErrNilRequest, got %v", err)
		}
	})

	t.Run("redirects are followed", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "moved")
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		tr, _ := New() //nolint:errcheck
		resp, err := tr.Do(context.Background(), &Request{URL: srv.URL + "/old"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.FinalURL != srv.URL+"/new" {
			t.Errorf("expected final URL %s/new, got %s", srv.URL, resp.FinalURL)
		}
	})
}

// TestHTTPTransportEncodings tests response decompression.
func TestHTTPTransportEncodings(t *testing.T) {
	t.Parallel()

	encode := map[string]func(string) []byte{
		"gzip": func(s string) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write([]byte(s))
			_ = zw.Close()
			return buf.Bytes()
		},
		"br": func(s string) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write([]byte(s))
			_ = bw.Close()
			return buf.Bytes()
		},
	}

	for name, enc := range encode {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			payload := enc("<http://a> <http://b> <http://c> .")
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), name) {
					t.Errorf("encoding %s not advertised: %q", name, r.Header.Get("Accept-Encoding"))
				}
				w.Header().Set("Content-Encoding", name)
				w.Header().Set("Content-Type", "application/n-triples")
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			tr, _ := New() //nolint:errcheck
			resp, err := tr.Do(context.Background(), &Request{URL: srv.URL})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(resp.Body) != "<http://a> <http://b> <http://c> ." {
				t.Errorf("unexpected decoded body %q", resp.Body)
			}
		})
	}
}

// TestHTTPTransportBodyLimit tests the response size cap.
func TestHTTPTransportBodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	tr, _ := New(WithMaxBodySize(16)) //nolint:errcheck
	_, err := tr.Do(context.Background(), &Request{URL: srv.URL})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

// TestHeaderInjection tests global headers and per-site cookies.
func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Global"); got != "yes" {
			t.Errorf("expected global header, got %q", got)
		}
		if got := r.Header.Get("X-Site"); got != "127.0.0.1" {
			t.Errorf("expected site header, got %q", got)
		}
		if got := r.Header.Get("Cookie"); got != "session=abc" {
			t.Errorf("expected site cookie, got %q", got)
		}
	}))
	defer srv.Close()

	tr, err := New(
		WithHeaders(map[string]string{"X-Global": "yes"}),
		WithSiteResolver(func(host string) (string, map[string]string) {
			return "session=abc", map[string]string{"X-Site": host}
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tr.Do(context.Background(), &Request{URL: srv.URL}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
