package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/expensemanager/core/internal/model"
)

const (
	transactionsCollection = "transactions"
	preferencesCollection  = "preferences"
)

// FirestoreStore implements TransactionStore and KVStore on Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// writeBackoff bounds retries on transient commit failures so a write
// either durably lands or surfaces an error; it is never silently lost.
func writeBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second
	return backoff.WithContext(b, ctx)
}

// Save upserts transactions, assigning IDs to new records.
func (s *FirestoreStore) Save(ctx context.Context, txns []model.Transaction) error {
	for i := range txns {
		if txns[i].ID == "" {
			txns[i].ID = uuid.New().String()
		}
		t := txns[i]

		op := func() error {
			_, err := s.client.Collection(transactionsCollection).Doc(t.ID).Set(ctx, t)
			return err
		}
		if err := backoff.Retry(op, writeBackoff(ctx)); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// QueryByRange returns transactions with OccurredAt in [start, end),
// ordered ascending.
func (s *FirestoreStore) QueryByRange(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	query := s.client.Collection(transactionsCollection).
		Where("occurredAt", ">=", start).
		Where("occurredAt", "<", end).
		OrderBy("occurredAt", firestore.Asc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	result := make([]model.Transaction, 0, len(docs))
	for _, doc := range docs {
		var t model.Transaction
		if err := doc.DataTo(&t); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", doc.Ref.ID, err)
		}
		t.RestoreAmount()
		result = append(result, t)
	}
	return result, nil
}

// Get implements KVStore.
func (s *FirestoreStore) Get(ctx context.Context, key string) (string, bool, error) {
	doc, err := s.client.Collection(preferencesCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}

	value, ok := doc.Data()["value"].(string)
	if !ok {
		return "", false, fmt.Errorf("preference %s has no string value", key)
	}
	return value, true, nil
}

// Put implements KVStore, retrying transient failures.
func (s *FirestoreStore) Put(ctx context.Context, key, value string) error {
	op := func() error {
		_, err := s.client.Collection(preferencesCollection).Doc(key).Set(ctx, map[string]interface{}{
			"value":     value,
			"updatedAt": time.Now(),
		})
		return err
	}
	if err := backoff.Retry(op, writeBackoff(ctx)); err != nil {
		return fmt.Errorf("put preference %s: %w", key, err)
	}
	return nil
}
