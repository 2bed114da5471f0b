// Package database provides SQLite-based storage for patternscan.
//
// This package implements the AuditDB, which keeps the history of audits
// so that later runs can be compared against earlier ones: which findings
// are new, which were resolved, and how the score moved.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
