// Package crypto wraps the primitive operations the engine needs: X25519
// key agreement, Ed25519 signatures and fingerprint derivation. Protocol
// logic lives in internal/protocol; this package stays primitive-shaped.
package crypto
