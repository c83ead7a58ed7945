// Package storage opens the SQL backend configured for a resident process
// and migrates its schema.
//
// Two drivers are supported:
//   - "sqlite": a local database file (modernc.org/sqlite, no cgo)
//   - "postgres": a pgx connection pool
//
// Both carry the same three tables: the job queue (resident_jobs), the batch
// gate (resident_batches) and the account directory (resident_accounts).
package storage
