// Package store defines the persistence boundaries the pipeline
// consumes: a raw message source, a transaction record store and a
// key-value preference store. The pipeline defines the encodings; the
// implementations own the physical storage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/expensemanager/core/internal/model"
)

// ErrPermissionDenied is returned by a MessageSource when the caller
// has not been granted access to the underlying messages. Callers
// surface it with a "grant access" affordance and return empty results
// rather than failing.
var ErrPermissionDenied = errors.New("message source access denied")

// MessageSource supplies raw candidate messages. The pipeline never
// mutates the source.
type MessageSource interface {
	// FetchCandidateMessages returns messages received after since;
	// a nil since means the full history.
	FetchCandidateMessages(ctx context.Context, since *time.Time) ([]model.Message, error)
}

// TransactionStore is the persisted transaction cache. The pipeline
// populates and re-reads it, and tolerates it being empty (cold start
// falls back to re-extraction over the message source).
type TransactionStore interface {
	Save(ctx context.Context, txns []model.Transaction) error
	QueryByRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error)
}

// KVStore persists small preference blobs: alias tables, inclusion
// state, sync state. Values are opaque strings; the pipeline owns the
// encoding.
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}
