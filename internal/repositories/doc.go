// Package repositories implements SQLite persistence for studyx.
//
// Key Implementations:
//   - [KVStore] : string key/value storage backing the timer's durable client state
//   - [StudyTimeRepository] : per client session totals and the idempotent delta application of the sync endpoint
//   - [ProgressRepository] : study progress records
//
// Every repository takes a *sql.DB opened with [shared.OpenDatabase], so the embedded migrations have run.
package repositories
