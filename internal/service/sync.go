package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/ledger"
	"github.com/expensemanager/core/internal/logger"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/store"
)

const syncStateKey = "sync_state"

type syncState struct {
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	// PermissionDenied is set when the message source refused access;
	// the pass produced no data and the caller should surface a grant
	// affordance instead of an error page.
	PermissionDenied bool
	MessagesScanned  int
	Extracted        int
	Saved            int
	LastSyncedAt     time.Time
}

// SyncMessages scans the message source for messages received since the
// last pass, extracts candidates, deduplicates them against what is
// already persisted and saves the result. A failure on one message
// never aborts the rest; cancellation is honored between messages.
func (s *ExpenseService) SyncMessages(ctx context.Context) (SyncResult, error) {
	since, err := s.loadSyncState(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	return s.sync(ctx, since)
}

// Rebuild re-runs extraction over the full message history, the cold
// start path when the transaction store is empty or suspect.
func (s *ExpenseService) Rebuild(ctx context.Context) (SyncResult, error) {
	return s.sync(ctx, nil)
}

func (s *ExpenseService) sync(ctx context.Context, since *time.Time) (SyncResult, error) {
	log := logger.FromContext(ctx)

	if s.source == nil {
		return SyncResult{}, nil
	}

	msgs, err := s.source.FetchCandidateMessages(ctx, since)
	if err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			log.Warn().Msg("message source access denied, returning empty results")
			return SyncResult{PermissionDenied: true}, nil
		}
		return SyncResult{}, &model.PipelineError{
			Code:    model.ErrPermissionDenied,
			Message: "message source unavailable",
			Cause:   err,
		}
	}

	result := SyncResult{MessagesScanned: len(msgs)}
	if len(msgs) == 0 {
		return result, nil
	}

	candidates, err := s.extractor.ExtractBatch(ctx, msgs, s.nextPass())
	if err != nil {
		// cancelled mid-batch; report what was completed
		return result, err
	}
	result.Extracted = len(candidates)
	if len(candidates) == 0 {
		return result, s.saveSyncState(ctx, msgs)
	}

	extracted := ledger.Dedupe(candidates, s.resolver)

	// Dedupe against the already-persisted window the new records span.
	lo, hi := occurrenceSpan(extracted)
	persisted, err := s.txns.QueryByRange(ctx, lo, hi.AddDate(0, 0, 1))
	if err != nil {
		return result, model.NewPersistenceError("read persisted transactions", err)
	}
	s.reresolve(persisted)

	merged := ledger.Merge(persisted, extracted)
	if err := s.txns.Save(ctx, merged); err != nil {
		return result, model.NewPersistenceError("save transactions", err)
	}
	result.Saved = len(merged)

	if err := s.saveSyncState(ctx, msgs); err != nil {
		return result, err
	}
	result.LastSyncedAt = latestReceipt(msgs)

	s.broker.Publish(events.Event{Type: events.SyncCompleted})
	log.Info().
		Int("messages", result.MessagesScanned).
		Int("extracted", result.Extracted).
		Int("saved", result.Saved).
		Msg("message sync completed")
	return result, nil
}

// TransactionsForRange reads the persisted window with identities
// re-resolved against the current alias table. An empty store falls
// back to re-running extraction over the message source.
func (s *ExpenseService) TransactionsForRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	txns, err := s.txns.QueryByRange(ctx, start, end)
	if err != nil {
		return nil, model.NewPersistenceError("query transactions", err)
	}

	if len(txns) == 0 && s.source != nil {
		if _, err := s.Rebuild(ctx); err != nil {
			return nil, err
		}
		txns, err = s.txns.QueryByRange(ctx, start, end)
		if err != nil {
			return nil, model.NewPersistenceError("query transactions", err)
		}
	}

	s.reresolve(txns)
	return txns, nil
}

// reresolve re-derives the resolved-identity fields, which go stale in
// the store whenever an alias changes.
func (s *ExpenseService) reresolve(txns []model.Transaction) {
	for i := range txns {
		s.resolver.Apply(&txns[i])
	}
}

func (s *ExpenseService) loadSyncState(ctx context.Context) (*time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, syncStateKey)
	if err != nil {
		return nil, model.NewPersistenceError("load sync state", err)
	}
	if !ok {
		return nil, nil
	}
	var state syncState
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.LastSyncedAt.IsZero() {
		return nil, nil
	}
	return &state.LastSyncedAt, nil
}

func (s *ExpenseService) saveSyncState(ctx context.Context, msgs []model.Message) error {
	last := latestReceipt(msgs)
	if last.IsZero() {
		return nil
	}
	encoded, err := json.Marshal(syncState{LastSyncedAt: last})
	if err != nil {
		return model.NewPersistenceError("encode sync state", err)
	}
	if err := s.kv.Put(ctx, syncStateKey, string(encoded)); err != nil {
		return model.NewPersistenceError("save sync state", err)
	}
	return nil
}

func latestReceipt(msgs []model.Message) time.Time {
	var last time.Time
	for _, m := range msgs {
		if m.ReceivedAt.After(last) {
			last = m.ReceivedAt
		}
	}
	return last
}

func occurrenceSpan(txns []model.Transaction) (time.Time, time.Time) {
	lo, hi := txns[0].OccurredAt, txns[0].OccurredAt
	for _, t := range txns[1:] {
		if t.OccurredAt.Before(lo) {
			lo = t.OccurredAt
		}
		if t.OccurredAt.After(hi) {
			hi = t.OccurredAt
		}
	}
	return lo, hi
}
