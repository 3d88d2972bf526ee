// Package store provides the SQLite-backed generation ledger.
//
// Every successful generation appends one run record holding the
// content-addressed hashes of its inputs and output. The ledger answers two
// questions: what produced a given output file, and whether a new run with
// identical inputs would be redundant.
//
// # Ordering
//
// Runs are ordered by a logical seq column, never by wall-clock time.
// All list queries use ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Hashes are computed by internal/ir/hash.go.
package store
