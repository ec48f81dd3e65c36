package types

// EncryptedEnvelope is the wire-level unit handed to the transport. It is
// immutable once created; ownership transfers to the transport on send.
type EncryptedEnvelope struct {
	From         RemoteIdentity `json:"from"`
	To           RemoteIdentity `json:"to"`
	Conversation ConversationID `json:"conversation"`

	Header RatchetHeader `json:"header"`
	Cipher []byte        `json:"cipher"`

	// PreKey is present only on the first envelopes of a conversation so
	// the receiver can bootstrap its session.
	PreKey *PreKeyMessage `json:"pre_key,omitempty"`

	// Unencrypted marks a plaintext fallback send; Cipher then carries the
	// raw message bytes and Header is zero.
	Unencrypted bool `json:"unencrypted,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// DecryptedMessage is delivered to the caller on successful receipt.
type DecryptedMessage struct {
	From         RemoteIdentity `json:"from"`
	Conversation ConversationID `json:"conversation"`
	Plaintext    []byte         `json:"plaintext"`
	Encrypted    bool           `json:"encrypted"`
	Timestamp    int64          `json:"timestamp"`
}

// Tombstone replaces a message that failed to decrypt. Decryption failures
// surface visibly; they are never dropped on the floor.
type Tombstone struct {
	From         RemoteIdentity `json:"from"`
	Conversation ConversationID `json:"conversation"`
	Reason       string         `json:"reason"`
	Timestamp    int64          `json:"timestamp"`
}
