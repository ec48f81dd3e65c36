package types

// SessionSchemaVersion is the current on-disk SessionRecord layout. Records
// carrying any other version fail to load instead of being decoded on a
// best-effort basis.
const SessionSchemaVersion = 1

// SessionStatus tracks where a conversation is in its lifecycle.
type SessionStatus string

const (
	StatusNone        SessionStatus = "NONE"
	StatusPending     SessionStatus = "PENDING"
	StatusKeyExchange SessionStatus = "KEY_EXCHANGE"
	StatusEstablished SessionStatus = "ESTABLISHED"
	StatusVerified    SessionStatus = "VERIFIED"
	StatusFailed      SessionStatus = "FAILED"
)

// Secure reports whether the session has completed the handshake and holds
// usable chain keys.
func (s SessionStatus) Secure() bool {
	return s == StatusEstablished || s == StatusVerified
}

// SessionRecord is the durable per-conversation state: handshake result,
// ratchet chains, fingerprint and verification provenance.
//
// The record exclusively owns its key material. Counters only increase and
// the root key is replaced, never mutated in place, on every DH ratchet step.
type SessionRecord struct {
	SchemaVersion int            `json:"schema_version"`
	Conversation  ConversationID `json:"conversation"`
	Remote        RemoteIdentity `json:"remote"`
	Status        SessionStatus  `json:"status"`

	Ratchet         RatchetState  `json:"ratchet"`
	PeerIdentityKey X25519Public  `json:"peer_identity_key"`
	PeerSigningKey  Ed25519Public `json:"peer_signing_key"`

	// PendingPreKey rides along on outbound envelopes until the peer has
	// bootstrapped its side; cleared after the first acknowledged send.
	PendingPreKey *PreKeyMessage `json:"pending_pre_key,omitempty"`

	Fingerprint   Fingerprint        `json:"fingerprint"`
	Verification  VerificationRecord `json:"verification"`
	FailureReason string             `json:"failure_reason,omitempty"`

	CreatedUTC int64 `json:"created_utc"`
	UpdatedUTC int64 `json:"updated_utc"`
}

// CanEncrypt reports whether the record is ready to produce ciphertext under
// the given policy gate.
func (r SessionRecord) CanEncrypt(requireVerified bool) bool {
	if requireVerified {
		return r.Status == StatusVerified
	}
	return r.Status.Secure()
}
