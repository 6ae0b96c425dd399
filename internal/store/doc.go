// Package store provides SQLite-backed durable storage for machine runs.
//
// The store is an append-only run log with:
//   - Runs: one record per execution (table, input, outcome, digest)
//   - Configurations: every configuration of a run, keyed by (run_id, step)
//
// # Ordering
//
// Configurations are always read ORDER BY step ASC. Runs are listed by their
// insertion sequence, never by wall-clock time, so listings are stable even
// when the clock is not.
//
// # Replay
//
// A run stores the canonical JSON of its table and its initial tape. Verify
// rebuilds the table, re-executes it, and compares each configuration and the
// trace digest with what was recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
