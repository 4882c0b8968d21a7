// Package service orchestrates the pipeline: message sync, identity
// edits, inclusion toggles and dashboard aggregation. It is the
// in-process surface the surrounding application calls.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/expensemanager/core/internal/analytics"
	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/ledger"
	"github.com/expensemanager/core/internal/merchant"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/parser"
	"github.com/expensemanager/core/internal/period"
	"github.com/expensemanager/core/internal/store"
)

// Config wires an ExpenseService to its collaborators.
type Config struct {
	Source       store.MessageSource
	Transactions store.TransactionStore
	Preferences  store.KVStore
	Broker       *events.Broker
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// ExpenseService is the pipeline facade.
type ExpenseService struct {
	source    store.MessageSource
	txns      store.TransactionStore
	kv        store.KVStore
	broker    *events.Broker
	extractor *parser.Extractor
	resolver  *merchant.Resolver
	inclusion *ledger.InclusionState
	periods   *period.Service
	now       func() time.Time

	mu        sync.Mutex
	pass      int
	selection analytics.Selection
}

// New loads persisted state and builds the service.
func New(ctx context.Context, cfg Config) (*ExpenseService, error) {
	if cfg.Transactions == nil || cfg.Preferences == nil {
		return nil, fmt.Errorf("service: transaction and preference stores are required")
	}
	if cfg.Broker == nil {
		cfg.Broker = events.NewBroker()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	resolver, err := merchant.NewResolver(ctx, cfg.Preferences, cfg.Broker)
	if err != nil {
		return nil, err
	}
	inclusion, err := ledger.LoadInclusionState(ctx, cfg.Preferences, cfg.Broker)
	if err != nil {
		return nil, err
	}

	return &ExpenseService{
		source:    cfg.Source,
		txns:      cfg.Transactions,
		kv:        cfg.Preferences,
		broker:    cfg.Broker,
		extractor: parser.New(),
		resolver:  resolver,
		inclusion: inclusion,
		periods:   period.NewServiceWithClock(now),
		now:       now,
		selection: analytics.AutoSelection(),
	}, nil
}

// Broker exposes the change-event broker for subscribers.
func (s *ExpenseService) Broker() *events.Broker {
	return s.broker
}

// Resolver exposes the identity resolver for read paths.
func (s *ExpenseService) Resolver() *merchant.Resolver {
	return s.resolver
}

// Inclusion exposes the inclusion state for read paths.
func (s *ExpenseService) Inclusion() *ledger.InclusionState {
	return s.inclusion
}

// AliasBatchResult reports partial success for bulk alias writes.
type AliasBatchResult struct {
	Saved int
	Total int
	// FirstErr is the first persistence failure, nil when Saved ==
	// Total.
	FirstErr error
}

func (r AliasBatchResult) String() string {
	return fmt.Sprintf("%d of %d aliases saved", r.Saved, r.Total)
}

// SetMerchantAlias points one merchant at a display identity and
// category, creating the category when new.
func (s *ExpenseService) SetMerchantAlias(ctx context.Context, rawMerchant, displayName, category string) error {
	return s.resolver.SetAlias(ctx, merchant.Normalize(rawMerchant), displayName, category)
}

// RemoveMerchantAlias reverts one merchant to its default identity.
func (s *ExpenseService) RemoveMerchantAlias(ctx context.Context, rawMerchant string) error {
	return s.resolver.RemoveAlias(ctx, merchant.Normalize(rawMerchant))
}

// RenameMerchantGroup re-points every merchant currently displayed as
// oldDisplayName at a new identity. Failures do not abort the batch;
// the result reports how many of the writes durably landed.
func (s *ExpenseService) RenameMerchantGroup(ctx context.Context, oldDisplayName, newDisplayName, category string) AliasBatchResult {
	members := s.resolver.MerchantsForDisplayName(oldDisplayName)
	result := AliasBatchResult{Total: len(members)}

	for _, normalized := range members {
		cat := category
		if cat == "" {
			// keep each member's current category on a pure rename
			if alias, ok := s.resolver.Alias(normalized); ok {
				cat = alias.Category
			}
		}
		if err := s.resolver.SetAlias(ctx, normalized, newDisplayName, cat); err != nil {
			if result.FirstErr == nil {
				result.FirstErr = err
			}
			continue
		}
		result.Saved++
	}
	return result
}

// ToggleInclusion flips whether a display merchant counts toward
// totals and returns the new flag. The change is durable before the
// call returns, so every consumer reading the same state sees it.
func (s *ExpenseService) ToggleInclusion(ctx context.Context, displayMerchant string) (bool, error) {
	return s.inclusion.Toggle(ctx, displayMerchant)
}

// SetGranularity pins the series granularity until ResetGranularity.
func (s *ExpenseService) SetGranularity(g model.Granularity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = analytics.ManualSelection(g)
}

// ResetGranularity returns granularity selection to automatic.
func (s *ExpenseService) ResetGranularity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = analytics.AutoSelection()
}

func (s *ExpenseService) currentSelection() analytics.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *ExpenseService) nextPass() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pass++
	return s.pass
}
