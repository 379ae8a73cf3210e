// Package representation converts between response bytes and the
// structured-fact model.
//
// # Handlers
//
// A Handler owns one format. It declares a structural tag (the functor of
// the facts it produces) and the media types it consumes:
//
//   - TextHandler: text/plain and every other text/* type without a better match
//   - GraphHandler: text/turtle and application/n-triples via github.com/knakk/rdf
//   - JSONHandler: application/json and application/ld+json
//   - YAMLHandler: application/yaml and friends via gopkg.in/yaml.v3
//   - HTMLHandler: text/html (read-only), extracts titles and links
//   - EXIFHandler: image/jpeg and image/tiff (read-only), extracts EXIF tags
//
// # Registry
//
// The Registry dispatches by media type on the read path and by structural
// tag on the write path. Lookups are lock-free; the dispatch table is
// replaced atomically on registration.
//
// Design decision: We key the table on the bare "type/subtype" token because:
//  1. Servers append parameters such as charset freely
//  2. The full content type still reaches the handler for encoding decisions
//  3. A static table is easy to reason about compared to content sniffing
package representation
