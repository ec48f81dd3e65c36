// Package x3dh implements the extended triple Diffie-Hellman handshake used
// to bootstrap a shared root key from a peer's published pre-key bundle
// without both parties being online.
package x3dh
