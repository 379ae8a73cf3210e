package representation

import (
	"net/url"

	"github.com/nao1215/ldcrawl/internal/fact"
)

// Links returns the absolute http(s) URIs a representation points to, in
// order of first appearance and without duplicates.
//
// For graphs, subjects and objects that are IRIs are links; predicates are
// vocabulary terms and are not followed. For HTML, every link fact counts.
func Links(facts fact.Collection) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)

	add := func(n fact.Node) {
		sc, ok := n.(fact.Scalar)
		if !ok {
			return
		}
		s, ok := sc.Text()
		if !ok || seen[s] || !isHTTPURI(s) {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, n := range facts {
		s, ok := n.(fact.Struct)
		if !ok {
			continue
		}
		switch {
		case s.Functor == TagRDF && s.Arity() == 3:
			add(s.Args[0])
			add(s.Args[2])
		case s.Functor == FunctorLink && s.Arity() >= 1:
			add(s.Args[0])
		}
	}
	return out
}

func isHTTPURI(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
