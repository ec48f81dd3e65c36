package interfaces

import domaintypes "cloak/internal/domain/types"

// IdentityStore persists the local long-term identity keys at rest.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// SessionStore is the durable keyed persistence for session records. A
// record is saved after every state transition; deletion is an explicit
// caller action and purges skipped message keys with it.
type SessionStore interface {
	SaveSession(record domaintypes.SessionRecord) error
	LoadSession(id domaintypes.ConversationID) (domaintypes.SessionRecord, bool, error)
	DeleteSession(id domaintypes.ConversationID) error
	ListSessions() ([]domaintypes.SessionRecord, error)
}

// PreKeyStore manages local signed and one-time pre-key pairs.
type PreKeyStore interface {
	SaveSignedPreKey(
		id domaintypes.SignedPreKeyID,
		priv domaintypes.X25519Private,
		pub domaintypes.X25519Public,
		sig []byte,
	) error
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (
		priv domaintypes.X25519Private,
		pub domaintypes.X25519Public,
		sig []byte,
		ok bool,
		err error,
	)

	SaveOneTimePreKeys(pairs []domaintypes.OneTimePreKeyPair) error
	ConsumeOneTimePreKey(id domaintypes.OneTimePreKeyID) (
		priv domaintypes.X25519Private,
		pub domaintypes.X25519Public,
		ok bool,
		err error,
	)
	ListOneTimePreKeyPublics() ([]domaintypes.OneTimePreKeyPublic, error)

	SetCurrentSignedPreKeyID(id domaintypes.SignedPreKeyID) error
	CurrentSignedPreKeyID() (domaintypes.SignedPreKeyID, bool, error)
}
