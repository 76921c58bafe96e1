// Package session owns per-peer message correlation.
//
// Ownership boundary:
// - outbound queue of envelopes awaiting first transmission
// - pending-response table matching replies to requests by tag
// - handler dispatch with default-handler fallback
// - timeout reaping for both containers
// - session factory and lifecycle
//
// An envelope lives in at most one of the two containers at a time;
// the transport driver holds it in between. Byte-level transport,
// framing, and reconnect live outside this package.
package session
