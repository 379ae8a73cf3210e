package main

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/ldcrawl/internal/config"
	"github.com/nao1215/ldcrawl/internal/fact"
	"github.com/nao1215/ldcrawl/internal/operation"
	"github.com/nao1215/ldcrawl/internal/representation"
	"github.com/nao1215/ldcrawl/internal/transport"
)

// NewRequestCmd creates the request command.
func NewRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <uri>",
		Short: "Send a single HTTP request and print the parsed response",
		Long: `Request sends exactly one HTTP request and prints the response status
followed by the response payload.

The payload is parsed into facts and written back through the matching
representation handler, so the output shows what the crawler would see.
Read-only representations (HTML, EXIF) are printed as facts.

A --data-file is parsed under --content-type (or the type implied by its
extension) and re-serialized before sending, which validates it.

Examples:
  # GET a Turtle document
  ldcrawl request https://data.example.org/graph.ttl

  # Convert the response to N-Triples
  ldcrawl request --as application/n-triples https://data.example.org/graph.ttl

  # PUT a JSON document with an auth header
  ldcrawl request -X PUT -H "Authorization: Bearer token" -d item.json https://api.example.org/items/1`,
		Args: cobra.ExactArgs(1),
		RunE: runRequestCmd,
	}

	cmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringArrayP("header", "H", nil, `Request header "Name: value" (repeatable)`)
	cmd.Flags().StringP("data-file", "d", "", "File sent as the request body")
	cmd.Flags().String("content-type", "", "Media type of --data-file")
	cmd.Flags().String("as", "", "Media type used to print the response payload")
	cmd.Flags().Bool("facts", false, "Print the payload as facts instead of re-serializing it")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Request timeout")
	cmd.Flags().String("proxy", "", "Route the request through a SOCKS5 proxy (host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")

	return cmd
}

// requestOptions holds the parsed request flags.
type requestOptions struct {
	target      string
	method      string
	headers     map[string]string
	dataFile    string
	contentType string
	printAs     string
	printFacts  bool
}

// runRequestCmd executes the request command.
func runRequestCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	opts := requestOptions{target: args[0]}

	var err error
	if opts.method, err = flags.GetString("method"); err != nil {
		return err
	}
	rawHeaders, err := flags.GetStringArray("header")
	if err != nil {
		return err
	}
	if opts.headers, err = parseHeaders(rawHeaders); err != nil {
		return err
	}
	if opts.dataFile, err = flags.GetString("data-file"); err != nil {
		return err
	}
	if opts.contentType, err = flags.GetString("content-type"); err != nil {
		return err
	}
	if opts.printAs, err = flags.GetString("as"); err != nil {
		return err
	}
	if opts.printFacts, err = flags.GetBool("facts"); err != nil {
		return err
	}

	cfg := config.NewConfig()
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.ProxyAddress != "" && !transport.IsValidProxyAddress(cfg.ProxyAddress) {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidProxyAddress)
	}

	tr, err := transport.New(cfg.TransportOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	return runRequest(cmd, tr, representation.Default(), opts)
}

// runRequest sends the request and prints the outcome.
func runRequest(cmd *cobra.Command, tr transport.Transport, reg *representation.Registry, opts requestOptions) error {
	fields := operation.Fields{
		Method:  opts.method,
		Headers: opts.headers,
	}
	if opts.dataFile != "" {
		payload, contentType, err := loadPayload(reg, opts.dataFile, opts.contentType, opts.target)
		if err != nil {
			return err
		}
		fields.Payload = payload
		fields.ContentType = contentType
	}

	op, err := operation.New(opts.target, fields,
		operation.WithTransport(tr),
		operation.WithRegistry(reg),
		operation.WithLogger(setupLogger(cmd)),
	)
	if err != nil {
		return err
	}
	if err := op.SendRequest(cmd.Context()); err != nil {
		return err
	}
	resp, err := op.Response()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resp.Status == operation.StatusTransportError {
		fmt.Fprintf(out, "%s: %v\n", resp.Status, resp.Err)
		return fmt.Errorf("request to %s failed", opts.target)
	}

	fmt.Fprintf(out, "%s %d\n", resp.Status, resp.StatusCode)
	if resp.ContentType != "" {
		fmt.Fprintf(out, "Content-Type: %s\n", resp.ContentType)
	}
	if resp.PayloadErr != nil {
		fmt.Fprintf(out, "\nPayload could not be parsed: %v\n", resp.PayloadErr)
		return nil
	}
	if len(resp.Payload) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	return printPayload(out, reg, resp.Payload, baseOf(resp, opts.target), opts.printAs, opts.printFacts)
}

// loadPayload parses the data file into facts. The returned content type
// is the one the payload is sent as.
func loadPayload(reg *representation.Registry, path, contentType, baseURI string) (fact.Collection, string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided data file is intentional
	if err != nil {
		return nil, "", fmt.Errorf("failed to read data file: %w", err)
	}
	if contentType == "" {
		contentType = typeByExtension(filepath.Ext(path))
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	payload, err := reg.Deserialize(bytes.NewReader(data), baseURI, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse data file as %s: %w", representation.MediaType(contentType), err)
	}
	if len(payload) == 0 {
		return nil, "", fmt.Errorf("data file %s contains no facts", path)
	}
	return payload, representation.MediaType(contentType), nil
}

// printPayload writes the payload re-serialized, or as facts when the
// payload's format cannot be written.
func printPayload(out io.Writer, reg *representation.Registry, payload fact.Collection, baseURI, as string, asFacts bool) error {
	if !asFacts {
		var buf bytes.Buffer
		var err error
		if as != "" {
			err = reg.SerializeAs(&buf, payload, baseURI, as)
		} else {
			err = reg.Serialize(&buf, payload, baseURI)
		}
		if err == nil {
			_, err = out.Write(buf.Bytes())
			return err
		}
		if as != "" {
			return fmt.Errorf("cannot print payload as %s: %w", as, err)
		}
	}

	_, err := fmt.Fprintln(out, payload.String())
	return err
}

// parseHeaders converts "Name: value" strings into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// linkedDataExtensions covers extensions the system MIME table often lacks.
var linkedDataExtensions = map[string]string{
	".ttl":    "text/turtle",
	".nt":     "application/n-triples",
	".jsonld": "application/ld+json",
	".yaml":   "application/yaml",
	".yml":    "application/yaml",
}

func typeByExtension(ext string) string {
	if ct, ok := linkedDataExtensions[strings.ToLower(ext)]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

func baseOf(resp *operation.Response, target string) string {
	if resp.FinalURL != "" {
		return resp.FinalURL
	}
	return target
}
