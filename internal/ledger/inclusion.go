package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/store"
)

const inclusionKey = "inclusion_states"

// InclusionState maps display merchants to their include-in-totals
// flag. Absence means included; entries are created lazily on first
// toggle and persist across sessions. Decisions are made at the display
// identity, never at the raw or normalized key.
type InclusionState struct {
	kv     store.KVStore
	broker *events.Broker

	mu    sync.RWMutex
	flags map[string]bool // display name -> included; only explicit entries
}

// LoadInclusionState reads the persisted flags, migrating legacy
// un-trimmed keys to their canonical trimmed form once, at load.
func LoadInclusionState(ctx context.Context, kv store.KVStore, broker *events.Broker) (*InclusionState, error) {
	s := &InclusionState{
		kv:     kv,
		broker: broker,
		flags:  make(map[string]bool),
	}

	raw, ok, err := kv.Get(ctx, inclusionKey)
	if err != nil {
		return nil, model.NewPersistenceError("load inclusion state", err)
	}
	if !ok {
		return s, nil
	}

	decoded := make(map[string]bool)
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, model.NewPersistenceError("decode inclusion state", err)
	}

	migrated := false
	for key, included := range decoded {
		canonical := strings.TrimSpace(key)
		if canonical != key {
			migrated = true
		}
		if canonical == "" {
			migrated = true
			continue
		}
		s.flags[canonical] = included
	}
	if migrated {
		if err := s.persistLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Included reports whether a display merchant counts toward totals.
func (s *InclusionState) Included(displayMerchant string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	included, ok := s.flags[strings.TrimSpace(displayMerchant)]
	if !ok {
		return true
	}
	return included
}

// Set records a merchant's flag, keyed by trimmed display name. The
// write is durable before it returns and every consumer reading the
// same state observes it; a failed persist leaves the state unchanged.
func (s *InclusionState) Set(ctx context.Context, displayMerchant string, included bool) error {
	displayMerchant = strings.TrimSpace(displayMerchant)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.flags[displayMerchant]
	s.flags[displayMerchant] = included

	if err := s.persistLocked(ctx); err != nil {
		if hadPrev {
			s.flags[displayMerchant] = prev
		} else {
			delete(s.flags, displayMerchant)
		}
		return err
	}

	if s.broker != nil {
		s.broker.Publish(events.Event{
			Type:        events.InclusionChanged,
			DisplayName: displayMerchant,
		})
	}
	return nil
}

// Toggle flips a merchant's flag and returns the new value.
func (s *InclusionState) Toggle(ctx context.Context, displayMerchant string) (bool, error) {
	next := !s.Included(displayMerchant)
	if err := s.Set(ctx, displayMerchant, next); err != nil {
		return !next, err
	}
	return next, nil
}

// ExcludedMerchants lists merchants currently excluded, sorted.
func (s *InclusionState) ExcludedMerchants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for name, included := range s.flags {
		if !included {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *InclusionState) persistLocked(ctx context.Context) error {
	encoded, err := json.Marshal(s.flags)
	if err != nil {
		return model.NewPersistenceError("encode inclusion state", err)
	}
	if err := s.kv.Put(ctx, inclusionKey, string(encoded)); err != nil {
		return model.NewPersistenceError("save inclusion state", err)
	}
	return nil
}

// ApplyInclusion filters transactions to those whose display merchant
// is included. Pure: the same state and input always yield the same
// output, so every consuming view agrees on what counts.
func ApplyInclusion(txns []model.Transaction, state *InclusionState) []model.Transaction {
	if state == nil {
		return txns
	}
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if state.Included(t.DisplayMerchant) {
			out = append(out, t)
		}
	}
	return out
}
