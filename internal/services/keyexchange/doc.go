// Package keyexchange runs the X3DH handshake against a peer's published
// pre-key bundle and persists the resulting session record.
package keyexchange
