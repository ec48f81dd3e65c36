package store

import (
	"sync"

	"cloak/internal/domain"
)

// MemorySessionStore is an in-memory SessionStore used in tests and
// short-lived tooling.
type MemorySessionStore struct {
	mu      sync.Mutex
	records map[domain.ConversationID]domain.SessionRecord
}

// NewMemorySessionStore returns an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{records: make(map[domain.ConversationID]domain.SessionRecord)}
}

// SaveSession stores a copy of the record.
func (s *MemorySessionStore) SaveSession(record domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Ratchet = record.Ratchet.Clone()
	s.records[record.Conversation] = record
	return nil
}

// LoadSession retrieves a copy of the stored record.
func (s *MemorySessionStore) LoadSession(id domain.ConversationID) (domain.SessionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return domain.SessionRecord{}, false, nil
	}
	record.Ratchet = record.Ratchet.Clone()
	return record, true, nil
}

// DeleteSession removes the record and its skipped-key material.
func (s *MemorySessionStore) DeleteSession(id domain.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// ListSessions returns all stored records.
func (s *MemorySessionStore) ListSessions() ([]domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionRecord, 0, len(s.records))
	for _, record := range s.records {
		record.Ratchet = record.Ratchet.Clone()
		out = append(out, record)
	}
	return out, nil
}

// Compile-time assertion that MemorySessionStore implements domain.SessionStore.
var _ domain.SessionStore = (*MemorySessionStore)(nil)
