// Package pipeline is the message orchestrator: outbound messages pass
// through the content scanner, the Double Ratchet and then the transport;
// inbound envelopes are decrypted and delivered, with failures surfaced as
// visible tombstones. Per-conversation operations are serialised.
package pipeline
