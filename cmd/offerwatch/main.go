// Package main provides the entry point for the offerwatch CLI.
//
// offerwatch stores scraped classified ads and the subscriptions that are
// notified about them in a SQLite database. Every command that opens the
// database first brings its schema up to date.
//
// Usage:
//
//	offerwatch migrate
//	offerwatch status --markdown
//
// See --help for all available options.
package main

// main is the entry point for offerwatch.
func main() {
	Execute()
}
