// Package report renders the outcome of a crawl.
//
// A Summary is built once from the resources a crawl delivered and is then
// handed to one or more writers:
//   - SimpleWriter: human-readable text output for terminal display
//   - MarkdownWriter: Markdown tables for sharing and documentation
//   - JSONWriter: structured JSON output for tool integration
//
// Design decision: We separate summarizing from rendering so that every
// format reports exactly the same numbers. Writers never look at
// crawler.Resource directly.
package report
