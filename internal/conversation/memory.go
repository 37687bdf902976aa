package conversation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and local development.
// It mirrors RedisStore semantics, including TTL expiry, which is checked
// lazily on read.
type MemStore struct {
	mu            sync.RWMutex
	records       map[string]memEntry[Record]
	escalations   map[string]memEntry[Escalation]
	recordTTL     time.Duration
	escalationTTL time.Duration

	// now is swappable so tests can control expiry.
	now func() time.Time
}

type memEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// NewMemStore creates an in-memory Store.
func NewMemStore(recordTTL, escalationTTL time.Duration) *MemStore {
	if recordTTL <= 0 {
		recordTTL = defaultRecordTTL
	}
	if escalationTTL <= 0 {
		escalationTTL = defaultEscalationTTL
	}
	return &MemStore{
		records:       make(map[string]memEntry[Record]),
		escalations:   make(map[string]memEntry[Escalation]),
		recordTTL:     recordTTL,
		escalationTTL: escalationTTL,
		now:           time.Now,
	}
}

// SaveRecord upserts a conversation record.
func (s *MemStore) SaveRecord(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ExpiresAt = s.now().Add(s.recordTTL)
	s.records[rec.ConversationID] = memEntry[Record]{
		value:     rec,
		expiresAt: rec.ExpiresAt,
	}
	return nil
}

// GetRecord returns a record by conversation ID.
func (s *MemStore) GetRecord(_ context.Context, conversationID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[conversationID]
	if !ok || s.now().After(entry.expiresAt) {
		return Record{}, ErrNotFound
	}
	return entry.value, nil
}

// ListRecords returns records matching the filter, newest first.
func (s *MemStore) ListRecords(_ context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	records := make([]Record, 0)
	for _, entry := range s.records {
		if now.After(entry.expiresAt) {
			continue
		}
		if matches(entry.value, f) {
			records = append(records, entry.value)
		}
	}
	sortRecordsNewestFirst(records)
	return records, nil
}

// SaveEscalation upserts an escalation.
func (s *MemStore) SaveEscalation(_ context.Context, esc Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations[esc.ID] = memEntry[Escalation]{
		value:     esc,
		expiresAt: s.now().Add(s.escalationTTL),
	}
	return nil
}

// GetEscalation returns an escalation by ID.
func (s *MemStore) GetEscalation(_ context.Context, id string) (Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.escalations[id]
	if !ok || s.now().After(entry.expiresAt) {
		return Escalation{}, ErrNotFound
	}
	return entry.value, nil
}

// ListEscalations returns all live escalations, newest first.
func (s *MemStore) ListEscalations(_ context.Context) ([]Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	escalations := make([]Escalation, 0)
	for _, entry := range s.escalations {
		if now.After(entry.expiresAt) {
			continue
		}
		escalations = append(escalations, entry.value)
	}
	sortEscalationsNewestFirst(escalations)
	return escalations, nil
}

// DeleteEscalation removes an escalation.
func (s *MemStore) DeleteEscalation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.escalations[id]
	if !ok || s.now().After(entry.expiresAt) {
		return ErrNotFound
	}
	delete(s.escalations, id)
	return nil
}

func sortEscalationsNewestFirst(escalations []Escalation) {
	sort.Slice(escalations, func(i, j int) bool {
		return escalations[i].CreatedAt.After(escalations[j].CreatedAt)
	})
}
