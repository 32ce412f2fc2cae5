// Package messages defines the Cucumber Messages protocol entities and their
// newline-delimited JSON wire format.
//
// Every message travels inside an Envelope, a closed union that holds exactly
// one payload. Payload types are sealed: only types in this package implement
// Payload, so switches over Envelope.Content are exhaustive.
//
// Wire rules:
//   - field names are camelCase
//   - enum values serialize as their description string and decode
//     case-sensitively against the same table
//   - optional fields with no value are omitted, never emitted as null
//   - one envelope per line, no trailing newline after the last envelope
package messages
