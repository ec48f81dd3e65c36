// Package store provides persistence for the session engine.
//
// Session records and pre-key pairs live in a badger database so that every
// state transition is durably committed before it becomes externally
// visible. The long-term identity is sealed under a passphrase-derived key
// and kept as a file. An in-memory SessionStore backs tests.
package store
