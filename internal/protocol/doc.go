// Package protocol owns the peer message contract.
//
// Ownership boundary:
// - message identity and correlation tag derivation
// - the timeout error taxonomy shared by queue and reaper paths
package protocol
