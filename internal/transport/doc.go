// Package transport executes single HTTP exchanges for the crawler.
//
// The crawler and HTTP operations depend only on the Transport interface,
// so tests can substitute an in-memory implementation. HTTPTransport is the
// production implementation: it owns TLS, proxying, redirects, cookies and
// response decoding, none of which the crawler itself knows about.
package transport
