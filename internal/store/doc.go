// Package store is the SQLite build journal.
//
// Every driver run writes one row to runs and one row per action to
// actions. The journal is append-only apart from FinishRun and the status
// of each action, which is written once when the action completes.
//
// # Ordering
//
// Actions are ordered by seq, the driver's logical clock, never by wall
// time. Every query orders by seq ASC; runs are listed by id, which the
// driver generates as time-sortable UUIDv7.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers while a build writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: actions must reference an existing run
package store
