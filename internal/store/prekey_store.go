package store

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"cloak/internal/domain"
)

const (
	spkPrefix     = "spk/"
	opkPrefix     = "opk/"
	currentSPKKey = "meta/current_spk"
)

type spkRecord struct {
	Priv domain.X25519Private `json:"priv"`
	Pub  domain.X25519Public  `json:"pub"`
	Sig  []byte               `json:"sig"`
}

type opkRecord struct {
	Priv domain.X25519Private `json:"priv"`
	Pub  domain.X25519Public  `json:"pub"`
}

// PreKeyBadgerStore keeps local signed and one-time pre-key pairs in badger.
type PreKeyBadgerStore struct {
	db *badger.DB
}

// NewPreKeyBadgerStore returns a PreKeyBadgerStore over db.
func NewPreKeyBadgerStore(db *badger.DB) *PreKeyBadgerStore {
	return &PreKeyBadgerStore{db: db}
}

// SaveSignedPreKey stores a signed pre-key pair with its signature.
func (s *PreKeyBadgerStore) SaveSignedPreKey(
	id domain.SignedPreKeyID,
	priv domain.X25519Private,
	pub domain.X25519Public,
	sig []byte,
) error {
	raw, err := json.Marshal(spkRecord{Priv: priv, Pub: pub, Sig: sig})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(spkPrefix+id.String()), raw)
	})
}

// LoadSignedPreKey retrieves a signed pre-key pair by ID.
func (s *PreKeyBadgerStore) LoadSignedPreKey(id domain.SignedPreKeyID) (
	priv domain.X25519Private,
	pub domain.X25519Public,
	sig []byte,
	ok bool,
	err error,
) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get([]byte(spkPrefix + id.String()))
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		return item.Value(func(val []byte) error {
			var rec spkRecord
			if uerr := json.Unmarshal(val, &rec); uerr != nil {
				return uerr
			}
			priv, pub, sig, ok = rec.Priv, rec.Pub, rec.Sig, true
			return nil
		})
	})
	return priv, pub, sig, ok, errors.Wrapf(err, "load signed pre-key %q", id)
}

// SaveOneTimePreKeys stores a batch of one-time pre-key pairs.
func (s *PreKeyBadgerStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range pairs {
			raw, err := json.Marshal(opkRecord{Priv: p.Priv, Pub: p.Pub})
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(opkPrefix+p.ID.String()), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConsumeOneTimePreKey loads and deletes a one-time pre-key in one
// transaction, enforcing single use.
func (s *PreKeyBadgerStore) ConsumeOneTimePreKey(id domain.OneTimePreKeyID) (
	priv domain.X25519Private,
	pub domain.X25519Public,
	ok bool,
	err error,
) {
	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(opkPrefix + id.String())
		item, gerr := txn.Get(key)
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		verr := item.Value(func(val []byte) error {
			var rec opkRecord
			if uerr := json.Unmarshal(val, &rec); uerr != nil {
				return uerr
			}
			priv, pub, ok = rec.Priv, rec.Pub, true
			return nil
		})
		if verr != nil {
			return verr
		}
		return txn.Delete(key)
	})
	return priv, pub, ok, errors.Wrapf(err, "consume one-time pre-key %q", id)
}

// ListOneTimePreKeyPublics returns the public halves of the remaining
// one-time pre-keys.
func (s *PreKeyBadgerStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	var out []domain.OneTimePreKeyPublic
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(opkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := domain.OneTimePreKeyID(item.Key()[len(opkPrefix):])
			err := item.Value(func(val []byte) error {
				var rec opkRecord
				if uerr := json.Unmarshal(val, &rec); uerr != nil {
					return uerr
				}
				out = append(out, domain.OneTimePreKeyPublic{ID: id, Pub: rec.Pub})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list one-time pre-keys")
	}
	return out, nil
}

// SetCurrentSignedPreKeyID marks the signed pre-key to offer in bundles.
func (s *PreKeyBadgerStore) SetCurrentSignedPreKeyID(id domain.SignedPreKeyID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(currentSPKKey), []byte(id))
	})
}

// CurrentSignedPreKeyID returns the currently offered signed pre-key ID.
func (s *PreKeyBadgerStore) CurrentSignedPreKeyID() (domain.SignedPreKeyID, bool, error) {
	var id domain.SignedPreKeyID
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get([]byte(currentSPKKey))
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		found = true
		return item.Value(func(val []byte) error {
			id = domain.SignedPreKeyID(val)
			return nil
		})
	})
	return id, found, err
}

// Compile-time assertion that PreKeyBadgerStore implements domain.PreKeyStore.
var _ domain.PreKeyStore = (*PreKeyBadgerStore)(nil)
