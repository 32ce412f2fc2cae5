// Package store provides SQLite-backed durable storage for envelope streams.
//
// The store is an append-only log:
//   - Runs: one row per test run, keyed by a UUIDv7 run id
//   - Envelopes: every envelope of a run in publish order, with the feature
//     key it was routed under and its payload kind
//
// # Ordering
//
// Envelope order is the autoincrement seq column, never a timestamp. All
// reads use ORDER BY seq ASC so a replay reproduces the original stream.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
