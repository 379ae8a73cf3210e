// Package main provides the entry point for the ldcrawl CLI.
//
// ldcrawl is a linked-data crawler. It fetches resources over HTTP,
// converts each representation (Turtle, N-Triples, JSON, YAML, HTML,
// plain text, EXIF) into structured facts and follows the links found in
// them.
//
// Usage:
//
//	ldcrawl crawl <uri>...
//	ldcrawl request <uri>
//	ldcrawl history [crawl-id]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
