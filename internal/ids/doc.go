// Package ids generates the identifiers stamped on every protocol message.
//
// A single Generator instance is created per test run and shared by the
// converter, the pickle compiler and the publisher, so the whole document,
// pickle and execution graph lives in one identifier namespace and style.
//
// Two styles exist:
//   - Incrementing: base-10 integers from an atomic counter
//   - UUID: random RFC 4122 UUIDs
//
// Reseed continues a previously generated sequence: it inspects the last id
// handed out and returns a generator of the same style that will not collide
// with it.
package ids
