package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expensemanager/core/internal/model"
)

// MemoryStore implements TransactionStore and KVStore in memory. Used
// for local development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]model.Transaction
	kv           map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]model.Transaction),
		kv:           make(map[string]string),
	}
}

// Save upserts transactions, assigning IDs to new records.
func (m *MemoryStore) Save(ctx context.Context, txns []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		m.transactions[t.ID] = t
	}
	return nil
}

// QueryByRange returns transactions with OccurredAt in [start, end),
// ordered by OccurredAt ascending.
func (m *MemoryStore) QueryByRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []model.Transaction
	for _, t := range m.transactions {
		if t.OccurredAt.Before(start) || !t.OccurredAt.Before(end) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// Get implements KVStore.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.kv[key]
	return v, ok, nil
}

// Put implements KVStore.
func (m *MemoryStore) Put(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.kv[key] = value
	return nil
}

// SliceMessageSource serves a fixed message list, the cold-start
// re-extraction path in tests and the CLI.
type SliceMessageSource struct {
	Messages []model.Message
}

// FetchCandidateMessages implements MessageSource.
func (s *SliceMessageSource) FetchCandidateMessages(ctx context.Context, since *time.Time) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range s.Messages {
		if since != nil && !msg.ReceivedAt.After(*since) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
