package store

import (
	"sync"

	"github.com/pkg/errors"

	"cloak/internal/domain"
)

// MemoryIdentityStore is an in-memory IdentityStore used in tests. It keeps
// the passphrase check without any real key derivation.
type MemoryIdentityStore struct {
	mu         sync.Mutex
	saved      bool
	passphrase string
	id         domain.Identity
}

// NewMemoryIdentityStore returns an empty MemoryIdentityStore.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{}
}

// SaveIdentity stores the identity keyed to the passphrase.
func (s *MemoryIdentityStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = true
	s.passphrase = passphrase
	s.id = id
	return nil
}

// LoadIdentity returns the identity when the passphrase matches.
func (s *MemoryIdentityStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return domain.Identity{}, errors.New("no identity; run init first")
	}
	if passphrase != s.passphrase {
		return domain.Identity{}, errWrongPassphrase
	}
	return s.id, nil
}

// MemoryPreKeyStore is an in-memory PreKeyStore used in tests.
type MemoryPreKeyStore struct {
	mu         sync.Mutex
	spks       map[domain.SignedPreKeyID]spkRecord
	opks       map[domain.OneTimePreKeyID]opkRecord
	currentSPK domain.SignedPreKeyID
	hasCurrent bool
}

// NewMemoryPreKeyStore returns an empty MemoryPreKeyStore.
func NewMemoryPreKeyStore() *MemoryPreKeyStore {
	return &MemoryPreKeyStore{
		spks: make(map[domain.SignedPreKeyID]spkRecord),
		opks: make(map[domain.OneTimePreKeyID]opkRecord),
	}
}

// SaveSignedPreKey stores a signed pre-key pair with its signature.
func (s *MemoryPreKeyStore) SaveSignedPreKey(
	id domain.SignedPreKeyID,
	priv domain.X25519Private,
	pub domain.X25519Public,
	sig []byte,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spks[id] = spkRecord{Priv: priv, Pub: pub, Sig: append([]byte(nil), sig...)}
	return nil
}

// LoadSignedPreKey retrieves a signed pre-key pair by ID.
func (s *MemoryPreKeyStore) LoadSignedPreKey(id domain.SignedPreKeyID) (
	priv domain.X25519Private,
	pub domain.X25519Public,
	sig []byte,
	ok bool,
	err error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.spks[id]
	if !ok {
		return priv, pub, nil, false, nil
	}
	return rec.Priv, rec.Pub, rec.Sig, true, nil
}

// SaveOneTimePreKeys stores a batch of one-time pre-key pairs.
func (s *MemoryPreKeyStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		s.opks[p.ID] = opkRecord{Priv: p.Priv, Pub: p.Pub}
	}
	return nil
}

// ConsumeOneTimePreKey loads and deletes a one-time pre-key, enforcing
// single use.
func (s *MemoryPreKeyStore) ConsumeOneTimePreKey(id domain.OneTimePreKeyID) (
	priv domain.X25519Private,
	pub domain.X25519Public,
	ok bool,
	err error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.opks[id]
	if !ok {
		return priv, pub, false, nil
	}
	delete(s.opks, id)
	return rec.Priv, rec.Pub, true, nil
}

// ListOneTimePreKeyPublics returns the public halves of the remaining
// one-time pre-keys.
func (s *MemoryPreKeyStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OneTimePreKeyPublic, 0, len(s.opks))
	for id, rec := range s.opks {
		out = append(out, domain.OneTimePreKeyPublic{ID: id, Pub: rec.Pub})
	}
	return out, nil
}

// SetCurrentSignedPreKeyID marks the signed pre-key to offer in bundles.
func (s *MemoryPreKeyStore) SetCurrentSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSPK = id
	s.hasCurrent = true
	return nil
}

// CurrentSignedPreKeyID returns the currently offered signed pre-key ID.
func (s *MemoryPreKeyStore) CurrentSignedPreKeyID() (domain.SignedPreKeyID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSPK, s.hasCurrent, nil
}

// Compile-time assertions.
var (
	_ domain.IdentityStore = (*MemoryIdentityStore)(nil)
	_ domain.PreKeyStore   = (*MemoryPreKeyStore)(nil)
)
