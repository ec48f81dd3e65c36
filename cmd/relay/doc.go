// Package main runs the in-memory HTTP relay used by cloak during
// development and tests. It stores published pre-key bundles and queues
// encrypted envelopes for recipients until they are acknowledged.
//
// HTTP API
//
//	POST /register
//	    Store an identity's PreKeyBundle.
//
//	GET /prekey/{identity}
//	    Return the latest published PreKeyBundle for {identity}.
//
//	POST /msg/{identity}
//	    Enqueue an envelope destined to {identity}. If Timestamp is zero,
//	    the server fills it with the current Unix time.
//
//	GET /msg/{identity}?limit=N
//	    Return up to N queued envelopes without removing them. If limit is
//	    absent or exceeds the queue length, all queued envelopes are
//	    returned.
//
//	POST /msg/{identity}/ack { "count": N }
//	    Drop the first N queued envelopes for {identity}.
//
// All state is held in memory and lost on process exit. The relay never
// sees plaintext or private keys; it stores only ciphertext and public
// bundles.
package main
