package types

// ConversationID identifies one end-to-end encrypted conversation.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }

// RemoteIdentity names a party registered with the directory.
type RemoteIdentity string

// String returns the string form of the remote identity.
func (r RemoteIdentity) String() string { return string(r) }

// Fingerprint is the human-comparable safety number of a session.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SignedPreKeyID uniquely identifies a signed pre-key.
type SignedPreKeyID string

// String returns the string form of the identifier.
func (id SignedPreKeyID) String() string { return string(id) }

// OneTimePreKeyID uniquely identifies a one-time pre-key.
type OneTimePreKeyID string

// String returns the string form of the identifier.
func (id OneTimePreKeyID) String() string { return string(id) }
