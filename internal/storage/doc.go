// Package storage persists ridebot's durable state.
//
// It holds:
//   - the fulfiller registry (a JSON array of chat ids, or a sqlite table)
//   - an append-only audit log of operator actions and dispatch outcomes
package storage
