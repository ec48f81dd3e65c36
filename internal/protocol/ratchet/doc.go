// Package ratchet implements the Double Ratchet algorithm following
// Signal's design.
//
// The algorithm maintains a root key and two message chains (send and
// receive). Each message advances a KDF chain so that keys are forward
// secure. When a party presents a new DH ratchet public key, both sides
// derive new chain keys from a new root obtained via DH.
//
// Message keys are single use and zeroized immediately after sealing or
// opening. Decrypt commits its state changes only after AEAD authentication
// succeeds; replayed envelopes fail with domain.ErrAuthenticationFailure.
//
// Concurrency: RatchetState is NOT safe for concurrent use. Callers must
// serialise access per conversation.
package ratchet
