// Package store provides SQLite-backed history of analysis runs.
//
// Each run records:
//   - Runs: program hash, analyzed computation, scope, peak and report
//   - Run Instructions: the flattened order, one row per timestamp
//   - Run Spans: the [start, end) range of each flattened computation
//   - Run Ranges: the final live range and size of each value
//
// # Critical Patterns
//
// Logical Identity and Time
//   - Runs are ordered by seq INTEGER (logical clock), NEVER timestamps
//   - Run IDs are UUIDv7 strings issued by the engine
//
// Deterministic Query Results
//   - Every query has an explicit ORDER BY
//   - Child rows are read back in the order they were written
//   - RunFilter values are always bound as ? parameters
//
// Atomic Writes
//   - WriteRun inserts a run and all of its child rows in one transaction
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Program hashes are computed by ir.ProgramHash using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
