package domain

import "github.com/pkg/errors"

// Error taxonomy for the session engine. Cryptographic authentication
// failures and fingerprint mismatches are security events and are never
// silently recovered; scanner unavailability is the one locally-recovered
// condition (fail open, warning recorded).
var (
	// ErrNoSession indicates no session record exists for the conversation.
	ErrNoSession = errors.New("no session for conversation")

	// ErrNoPreKeyBundle indicates the remote party has no published (or an
	// expired) pre-key bundle.
	ErrNoPreKeyBundle = errors.New("no pre-key bundle for remote identity")

	// ErrInvalidSignature indicates the signed pre-key signature did not
	// verify. The handshake must abort; it is never downgraded to an
	// unauthenticated session.
	ErrInvalidSignature = errors.New("signed pre-key signature verification failed")

	// ErrFingerprintMismatch indicates the supplied fingerprint differs
	// from the stored one. Possible active interception.
	ErrFingerprintMismatch = errors.New("fingerprint mismatch")

	// ErrAuthenticationFailure indicates a replayed or tampered envelope.
	ErrAuthenticationFailure = errors.New("envelope authentication failure")

	// ErrDecryptionFailed indicates a malformed or undecryptable envelope.
	ErrDecryptionFailed = errors.New("envelope decryption failed")

	// ErrPolicyBlocked indicates the content scanner vetoed the send. Fatal
	// to the send attempt, not to the session.
	ErrPolicyBlocked = errors.New("content blocked by policy")

	// ErrCounterExhausted indicates a message counter reached its uint32
	// bound; the session must be renegotiated rather than wrap around.
	ErrCounterExhausted = errors.New("message counter exhausted; renegotiate session")

	// ErrSkipWindowExceeded indicates an envelope arrived too far ahead of
	// the receiving chain to derive skipped keys for it.
	ErrSkipWindowExceeded = errors.New("message number beyond skip window")

	// ErrSchemaVersion indicates a persisted record was written by an
	// incompatible engine version.
	ErrSchemaVersion = errors.New("unsupported session record schema version")

	// ErrUnknownToken indicates a confirmation token that is not pending.
	ErrUnknownToken = errors.New("unknown confirmation token")
)
