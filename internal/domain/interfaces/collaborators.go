package interfaces

import (
	"context"

	domaintypes "cloak/internal/domain/types"
)

// Directory serves published pre-key bundles.
type Directory interface {
	RegisterPreKeyBundle(ctx context.Context, bundle domaintypes.PreKeyBundle) error
	FetchPreKeyBundle(ctx context.Context, remote domaintypes.RemoteIdentity) (domaintypes.PreKeyBundle, error)
}

// Transport is the reliable ordered delivery channel for envelopes. Ordering
// and delivery guarantees are the transport's problem; the engine only
// requires that acked envelopes are not redelivered.
type Transport interface {
	SendEnvelope(ctx context.Context, env domaintypes.EncryptedEnvelope) error
	FetchEnvelopes(ctx context.Context, me domaintypes.RemoteIdentity, limit int) ([]domaintypes.EncryptedEnvelope, error)
	AckEnvelopes(ctx context.Context, me domaintypes.RemoteIdentity, count int) error
}

// Authenticator is the opaque biometric collaborator: a yes/no assertion.
type Authenticator interface {
	Authenticate(ctx context.Context, prompt string) (bool, error)
}
