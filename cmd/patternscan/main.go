// Package main provides the entry point for the patternscan CLI.
//
// patternscan loads web pages in a headless browser and audits them for
// dark patterns: manipulative interface designs such as pre-checked
// consent boxes, fake urgency and hidden subscription terms.
//
// Usage:
//
//	patternscan scan <url>
//	patternscan scan --list <file>
//	patternscan serve
//
// See --help for all available options.
package main

// main is the entry point for patternscan.
func main() {
	Execute()
}
