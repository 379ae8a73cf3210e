package representation

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// Fact names produced by HTMLHandler.
const (
	// TagHTML is the structural tag of HTML documents: html(title).
	TagHTML = "html"

	// FunctorLink is a hyperlink: link(href, text). href is absolute.
	FunctorLink = "link"

	// FunctorMeta is a meta tag: meta(name, content).
	FunctorMeta = "meta"
)

// HTMLHandler extracts the title, hyperlinks, and meta tags of HTML pages.
// It is read-only: a page cannot be rebuilt from its extracted facts.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. Link resolution needs the document's base, which a DOM walk finds
type HTMLHandler struct {
	readOnly
}

// NewHTMLHandler creates an HTMLHandler.
func NewHTMLHandler() *HTMLHandler {
	return &HTMLHandler{}
}

// Tag implements Handler.
func (h *HTMLHandler) Tag() string { return TagHTML }

// ContentTypes implements Handler.
func (h *HTMLHandler) ContentTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Deserialize implements Handler. The first fact is always html(title);
// link and meta facts follow in document order.
func (h *HTMLHandler) Deserialize(r io.Reader, baseURI, contentType string) (fact.Collection, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, unsupportedErr("undecodable HTML charset", err)
	}

	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, unsupportedErr("malformed HTML", err)
	}

	p := &htmlParser{}
	if base, err := url.Parse(baseURI); err == nil {
		p.base = base
	}

	p.walk(doc)

	facts := make(fact.Collection, 0, len(p.facts)+1)
	facts = append(facts, fact.New(TagHTML, fact.String(p.title)))
	facts = append(facts, p.facts...)
	return facts, nil
}

// htmlParser holds the state of one DOM walk.
type htmlParser struct {
	base  *url.URL
	title string
	facts []fact.Node
}

func (p *htmlParser) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		p.processElement(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

// processElement handles HTML element nodes.
func (p *htmlParser) processElement(n *html.Node) {
	switch n.Data {
	case "base":
		// <base href> overrides the request URI for relative links
		if href := getAttr(n, "href"); href != "" {
			if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
				if p.base != nil {
					u = p.base.ResolveReference(u)
				}
				p.base = u
			}
		}

	case "title":
		if p.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			p.title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if resolved := p.resolveURL(getAttr(n, "href")); resolved != "" {
			p.facts = append(p.facts, fact.New(FunctorLink,
				fact.String(resolved),
				fact.String(strings.Join(strings.Fields(textContent(n)), " ")),
			))
		}

	case "link":
		// Alternate representations are what linked-data crawlers follow
		if rel := strings.ToLower(getAttr(n, "rel")); rel == "alternate" || rel == "describedby" {
			if resolved := p.resolveURL(getAttr(n, "href")); resolved != "" {
				p.facts = append(p.facts, fact.New(FunctorLink, fact.String(resolved), fact.String(rel)))
			}
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name != "" && content != "" {
			p.facts = append(p.facts, fact.New(FunctorMeta, fact.String(name), fact.String(content)))
		}
	}
}

// resolveURL resolves a link against the document base. Non-navigable
// schemes and bare fragments resolve to "".
func (p *htmlParser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if p.base != nil {
		u = p.base.ResolveReference(u)
	}
	return u.String()
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var _ Handler = (*HTMLHandler)(nil)
