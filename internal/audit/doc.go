// Package audit ties the browser, the signal extractor, the detector
// registry and the scorer together into the two operations callers use:
// Scrape turns a URL into a PageSnapshot and Analyze turns a snapshot into
// scored findings with a summary.
//
// The package does not validate URLs or enforce rate limits; that belongs
// to the HTTP server and CLI layers that front it.
package audit
