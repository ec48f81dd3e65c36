package types

// RatchetHeader is sent in the clear alongside every ciphertext.
type RatchetHeader struct {
	SenderRatchetKey    []byte `json:"dh_pub"`
	PreviousChainLength uint32 `json:"pn"`
	MessageNumber       uint32 `json:"n"`
}

// RatchetState contains everything the Double Ratchet needs to track for one
// conversation. It is not safe for concurrent use; access must be serialised
// per conversation.
type RatchetState struct {
	RootKey   []byte        `json:"root_key"`
	DHPriv    X25519Private `json:"dh_priv"`
	DHPub     X25519Public  `json:"dh_pub"`
	PeerDHPub X25519Public  `json:"peer_dh_pub"`

	SendCK []byte `json:"send_ck,omitempty"`
	RecvCK []byte `json:"recv_ck,omitempty"`

	Ns uint32 `json:"ns"`
	Nr uint32 `json:"nr"`
	PN uint32 `json:"pn"`

	// Skipped holds message keys derived for out-of-order envelopes, keyed
	// by sender ratchet pub || message number. Entries are single use.
	Skipped map[string][]byte `json:"skipped,omitempty"`
}

// Clone returns a deep copy. Decryption stages its mutations on a clone and
// commits only after authentication succeeds, so a failed decrypt leaves the
// live state untouched.
func (s RatchetState) Clone() RatchetState {
	c := s
	c.RootKey = append([]byte(nil), s.RootKey...)
	c.SendCK = append([]byte(nil), s.SendCK...)
	c.RecvCK = append([]byte(nil), s.RecvCK...)
	if s.Skipped != nil {
		c.Skipped = make(map[string][]byte, len(s.Skipped))
		for k, v := range s.Skipped {
			c.Skipped[k] = append([]byte(nil), v...)
		}
	}
	return c
}
