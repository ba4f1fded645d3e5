// Package store persists the clinical warehouse in a single SQLite file.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One connection is shared by all operations; the sync
// loop is the only writer and WAL mode keeps concurrent readers (status,
// recent runs) from blocking it.
//
// # Tables
//
//   - dwh_patient: one row per hospital patient identifier, refreshed
//     from the export spreadsheet
//   - dwh_patient_ipphist: identifier history for each patient
//   - dwh_document: one row per watched file, refreshed as files change
//   - watched_files: the fingerprint snapshot persisted after each cycle
//   - sync_runs: history of cycles that performed work
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory and tracked in schema_migrations.
//
// All writes are keyed upserts: a second write with the same natural key
// overwrites the row, it never duplicates it.
package store
