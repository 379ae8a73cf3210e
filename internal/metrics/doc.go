// Package metrics exposes crawler activity as Prometheus metrics.
//
// Metrics implements crawler.Metrics and is handed to the crawler with
// crawler.WithMetrics. Handler serves the collected values for scraping.
package metrics
