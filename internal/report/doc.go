// Package report renders the migration status of a database.
//
// This package contains writers for different output formats:
//   - SimpleWriter: a text table for terminal display
//   - JSONWriter: structured JSON output for scripts and monitoring
//   - MarkdownWriter: GitHub Flavored Markdown for issues and runbooks
//
// All writers take a StatusReport built from a migration.Status, so adding a
// format never touches the migration engine.
package report
