package ratchet

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"cloak/internal/crypto"
	"cloak/internal/domain"
	"cloak/internal/util/memzero"
)

const (
	aeadKeySize = 32
	nonceSize   = chacha20poly1305.NonceSize

	// MaxSkipped bounds both how far ahead of the receiving chain an
	// envelope may reach and how many skipped message keys one session
	// caches.
	MaxSkipped = 1000
)

var errChainUninitialised = errors.New("ratchet chain key is uninitialised")

// InitAsInitiator seeds the sending chain from the X3DH root using a fresh
// ratchet key pair and the peer's identity key.
func InitAsInitiator(root []byte, peerIdentity domain.X25519Public) (domain.RatchetState, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.RatchetState{}, err
	}
	dh, err := crypto.DH(priv, peerIdentity)
	if err != nil {
		return domain.RatchetState{}, err
	}
	newRK, sendCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:   newRK,
		DHPriv:    priv,
		DHPub:     pub,
		PeerDHPub: peerIdentity, // placeholder until the first remote ratchet pub arrives
		SendCK:    sendCK,
		Skipped:   make(map[string][]byte),
	}, nil
}

// InitAsResponder seeds the receiving chain from the X3DH root using our
// identity private key and the initiator's first ratchet public key.
func InitAsResponder(root []byte, ourIDPriv domain.X25519Private, senderRatchetPub domain.X25519Public) (domain.RatchetState, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.RatchetState{}, err
	}
	dh, err := crypto.DH(ourIDPriv, senderRatchetPub)
	if err != nil {
		return domain.RatchetState{}, err
	}
	newRK, recvCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:   newRK,
		DHPriv:    priv,
		DHPub:     pub,
		PeerDHPub: senderRatchetPub,
		RecvCK:    recvCK,
		Skipped:   make(map[string][]byte),
	}, nil
}

// Encrypt derives the next message key, advances the sending chain and seals
// plaintext. The DH ratchet steps once per sender turn: only when the
// sending chain was invalidated by a received ratchet step, not per message.
func Encrypt(st *domain.RatchetState, ad, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	if st.Ns == math.MaxUint32 {
		return domain.RatchetHeader{}, nil, domain.ErrCounterExhausted
	}

	if len(st.SendCK) == 0 {
		if err := dhStepSending(st); err != nil {
			return domain.RatchetHeader{}, nil, err
		}
	}

	mk, err := kdfCKSend(st)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	h := domain.RatchetHeader{
		SenderRatchetKey:    st.DHPub.Slice(),
		PreviousChainLength: st.PN,
		MessageNumber:       st.Ns,
	}

	ct, err := seal(mk, h, ad, plaintext)
	memzero.Zero(mk)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	st.Ns++
	return h, ct, nil
}

// Decrypt opens an envelope, handling skipped keys and receiving-side DH
// ratchet steps. All mutation is staged on a clone of st and committed only
// after authentication succeeds, so a failed decrypt never desynchronises
// the live chains.
func Decrypt(st *domain.RatchetState, ad []byte, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	if len(header.SenderRatchetKey) != 32 {
		return nil, domain.ErrDecryptionFailed
	}

	work := st.Clone()
	pt, err := decryptInto(&work, ad, header, ciphertext)
	if err != nil {
		return nil, err
	}
	*st = work
	return pt, nil
}

func decryptInto(st *domain.RatchetState, ad []byte, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	var hdrPub domain.X25519Public
	copy(hdrPub[:], header.SenderRatchetKey)

	// Delayed message with a cached key (possibly from a chain we already
	// ratcheted past): use the key exactly once.
	keyID := skippedKeyID(hdrPub, header.MessageNumber)
	if mk, ok := st.Skipped[keyID]; ok {
		delete(st.Skipped, keyID)
		pt, err := open(mk, header, ad, ciphertext)
		memzero.Zero(mk)
		if err != nil {
			return nil, domain.ErrAuthenticationFailure
		}
		return pt, nil
	}

	sameChain := equal32(st.PeerDHPub[:], header.SenderRatchetKey)
	if sameChain {
		// No cached key and the counter is behind: a replayed envelope.
		if header.MessageNumber < st.Nr {
			return nil, domain.ErrAuthenticationFailure
		}
	} else {
		// New remote ratchet key: close out the old receiving chain, then
		// advance both chains through a DH step.
		if err := skipUntil(st, header.PreviousChainLength); err != nil {
			return nil, err
		}
		if err := dhStepReceiving(st, header.SenderRatchetKey); err != nil {
			return nil, err
		}
	}

	if err := skipUntil(st, header.MessageNumber); err != nil {
		return nil, err
	}
	mk, err := kdfCKRecv(st)
	if err != nil {
		return nil, err
	}
	pt, err := open(mk, header, ad, ciphertext)
	memzero.Zero(mk)
	if err != nil {
		return nil, domain.ErrAuthenticationFailure
	}
	if st.Nr == math.MaxUint32 {
		return nil, domain.ErrCounterExhausted
	}
	st.Nr++
	return pt, nil
}

// dhStepSending rotates our ratchet key pair and reseeds the sending chain
// against the peer's current ratchet public key.
func dhStepSending(st *domain.RatchetState) error {
	newPriv, newPub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh, err := crypto.DH(newPriv, st.PeerDHPub)
	if err != nil {
		return err
	}
	newRK, sendCK := kdfRK(st.RootKey, dh[:])
	memzero.Zero(dh[:])
	memzero.Zero(st.RootKey)

	st.PN = st.Ns
	st.Ns = 0
	st.RootKey = newRK
	st.DHPriv, st.DHPub = newPriv, newPub
	st.SendCK = sendCK
	return nil
}

// dhStepReceiving installs a new remote ratchet key: derives the receiving
// chain with our current key pair, then rotates our pair and derives a fresh
// sending chain, replacing the root key at each step.
func dhStepReceiving(st *domain.RatchetState, remote []byte) error {
	var newPeer domain.X25519Public
	copy(newPeer[:], remote)

	dh, err := crypto.DH(st.DHPriv, newPeer)
	if err != nil {
		return err
	}
	rk2, recvCK := kdfRK(st.RootKey, dh[:])
	memzero.Zero(dh[:])

	newPriv, newPub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh2, err := crypto.DH(newPriv, newPeer)
	if err != nil {
		return err
	}
	rk3, sendCK := kdfRK(rk2, dh2[:])
	memzero.Zero(dh2[:])
	memzero.Zero(rk2)
	memzero.Zero(st.RootKey)

	st.PN = st.Ns
	st.Ns, st.Nr = 0, 0
	st.RootKey = rk3
	st.DHPriv, st.DHPub = newPriv, newPub
	st.PeerDHPub = newPeer
	st.SendCK, st.RecvCK = sendCK, recvCK
	return nil
}

// --- helpers ---

func seal(mk []byte, header domain.RatchetHeader, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk[:aeadKeySize])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[nonceSize-4:], header.MessageNumber)
	return aead.Seal(nil, nonce, plaintext, append(ad, headerBytes(header)...)), nil
}

func open(mk []byte, header domain.RatchetHeader, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk[:aeadKeySize])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[nonceSize-4:], header.MessageNumber)
	return aead.Open(nil, nonce, ciphertext, append(ad, headerBytes(header)...))
}

func headerBytes(h domain.RatchetHeader) []byte {
	out := make([]byte, 0, len(h.SenderRatchetKey)+8)
	out = append(out, h.SenderRatchetKey...)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], h.PreviousChainLength)
	out = append(out, b[:]...)
	binary.BigEndian.PutUint32(b[:], h.MessageNumber)
	out = append(out, b[:]...)
	return out
}

// HKDF-based KDFs with labels.
func kdfRK(rk, dh []byte) (newRK, ck []byte) {
	r := hkdf.New(sha256.New, dh, rk, []byte("DR|rk"))
	newRK = make([]byte, 32)
	ck = make([]byte, 32)
	_, _ = io.ReadFull(r, newRK)
	_, _ = io.ReadFull(r, ck)
	return
}

func kdfCK(ck []byte) (nextCK, mk []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte("DR|ck"))
	nextCK = make([]byte, 32)
	mk = make([]byte, 32)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return
}

func kdfCKSend(st *domain.RatchetState) ([]byte, error) {
	if len(st.SendCK) == 0 {
		return nil, errChainUninitialised
	}
	nextCK, mk := kdfCK(st.SendCK)
	memzero.Zero(st.SendCK)
	st.SendCK = nextCK
	return mk, nil
}

func kdfCKRecv(st *domain.RatchetState) ([]byte, error) {
	if len(st.RecvCK) == 0 {
		return nil, errChainUninitialised
	}
	nextCK, mk := kdfCK(st.RecvCK)
	memzero.Zero(st.RecvCK)
	st.RecvCK = nextCK
	return mk, nil
}

func skippedKeyID(peer domain.X25519Public, n uint32) string {
	b := make([]byte, 32+4)
	copy(b, peer[:])
	binary.BigEndian.PutUint32(b[32:], n)
	return string(b)
}

// skipUntil derives and caches message keys up to (but not including) n.
func skipUntil(st *domain.RatchetState, n uint32) error {
	if st.Nr < n && n-st.Nr > MaxSkipped {
		return domain.ErrSkipWindowExceeded
	}
	for st.Nr < n {
		mk, err := kdfCKRecv(st)
		if err != nil {
			return err
		}
		if len(st.Skipped) >= MaxSkipped {
			for k := range st.Skipped {
				delete(st.Skipped, k)
				break
			}
		}
		if st.Skipped == nil {
			st.Skipped = make(map[string][]byte)
		}
		st.Skipped[skippedKeyID(st.PeerDHPub, st.Nr)] = mk
		st.Nr++
	}
	return nil
}

func equal32(a, b []byte) bool {
	if len(a) != 32 || len(b) != 32 {
		return false
	}
	var v byte
	for i := 0; i < 32; i++ {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
