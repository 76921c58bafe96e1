// Package transport owns the session pump.
//
// Ownership boundary:
// - the Transport boundary interface toward byte-level carriers
// - the Driver loop: drain, send-result reporting, inbound delivery,
//   scheduled timeout reaping
// - retry pacing between failed attempts
// - the in-memory loopback carrier for tests and demos
package transport
