package interfaces

import (
	"context"

	domaintypes "cloak/internal/domain/types"
)

// KeyExchangeService runs the X3DH handshake and bootstraps sessions.
type KeyExchangeService interface {
	// Initiate establishes a session with remote. It is an idempotent
	// no-op returning the existing record when the session is already
	// ESTABLISHED or VERIFIED.
	Initiate(
		ctx context.Context,
		passphrase string,
		me domaintypes.RemoteIdentity,
		remote domaintypes.RemoteIdentity,
	) (domaintypes.SessionRecord, error)

	// Respond bootstraps the responder side of a session from the pre-key
	// message carried on a first envelope.
	Respond(
		ctx context.Context,
		passphrase string,
		me domaintypes.RemoteIdentity,
		env domaintypes.EncryptedEnvelope,
	) (domaintypes.SessionRecord, error)

	GetSession(id domaintypes.ConversationID) (domaintypes.SessionRecord, bool, error)
}

// VerificationService compares fingerprints and records provenance.
type VerificationService interface {
	Verify(
		ctx context.Context,
		id domaintypes.ConversationID,
		fingerprint string,
		method domaintypes.VerificationMethod,
	) (domaintypes.VerificationResult, error)
}

// Scanner classifies outbound plaintext before it reaches the ratchet.
// Scan never returns an error: scanner trouble fails open with a warning
// recorded on the decision.
type Scanner interface {
	Scan(ctx context.Context, text string, sctx domaintypes.ScanContext) domaintypes.ScanDecision
}

// MessageService orchestrates scan, encrypt, persist and transport on the
// outbound path and the reverse on the inbound path.
type MessageService interface {
	Send(ctx context.Context, id domaintypes.ConversationID, plaintext string) (domaintypes.SendReceipt, error)

	// Resolve completes a send that was suspended on user confirmation.
	// choice is PROCEED, REDACT or FORCE_ENCRYPT.
	Resolve(ctx context.Context, token domaintypes.ConfirmationToken, choice domaintypes.ScanAction) (domaintypes.SendReceipt, error)

	// Cancel discards a suspended send. Nothing was encrypted.
	Cancel(token domaintypes.ConfirmationToken) error

	Receive(ctx context.Context, passphrase string, limit int) ([]domaintypes.DecryptedMessage, error)

	OnMessageDecrypted(fn func(domaintypes.DecryptedMessage))
	OnDecryptionFailed(fn func(domaintypes.Tombstone))
}
