package store

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"cloak/internal/domain"
	"cloak/internal/domain/types"
)

const sessionPrefix = "session/"

// SessionBadgerStore persists session records durably in badger. Records are
// written synchronously after every state transition so that a crash between
// persist and transport send never corrupts ratchet state.
type SessionBadgerStore struct {
	db *badger.DB
}

// NewSessionBadgerStore returns a SessionBadgerStore over db.
func NewSessionBadgerStore(db *badger.DB) *SessionBadgerStore {
	return &SessionBadgerStore{db: db}
}

// SaveSession writes the record under its conversation key, stamping the
// current schema version.
func (s *SessionBadgerStore) SaveSession(record domain.SessionRecord) error {
	record.SchemaVersion = types.SessionSchemaVersion
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal session record")
	}
	key := []byte(sessionPrefix + record.Conversation.String())
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, raw)
	})
}

// LoadSession retrieves the record for a conversation. A record written by
// an incompatible engine version fails loudly with ErrSchemaVersion instead
// of being decoded on a best-effort basis.
func (s *SessionBadgerStore) LoadSession(id domain.ConversationID) (domain.SessionRecord, bool, error) {
	var record domain.SessionRecord
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + id.String()))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.SessionRecord{}, false, errors.Wrapf(err, "load session %q", id)
	}
	if !found {
		return domain.SessionRecord{}, false, nil
	}
	if record.SchemaVersion != types.SessionSchemaVersion {
		return domain.SessionRecord{}, false, errors.Wrapf(domain.ErrSchemaVersion,
			"session %q has schema %d, want %d", id, record.SchemaVersion, types.SessionSchemaVersion)
	}
	return record, true, nil
}

// DeleteSession removes the record and, with it, all cached skipped message
// keys (the record is their sole owner).
func (s *SessionBadgerStore) DeleteSession(id domain.ConversationID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sessionPrefix + id.String()))
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

// ListSessions returns all stored records.
func (s *SessionBadgerStore) ListSessions() ([]domain.SessionRecord, error) {
	var out []domain.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var record domain.SessionRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	return out, nil
}

// Compile-time assertion that SessionBadgerStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionBadgerStore)(nil)
