// Package ledger merges candidate transactions from overlapping
// extraction passes into one deduplicated, inclusion-filtered set.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/merchant"
	"github.com/expensemanager/core/internal/model"
)

// dedupeKey collapses duplicates: same display identity, amount,
// calendar day and bank. Banks re-send alerts within a day, so the day
// is the granularity the originating messages actually report.
func dedupeKey(displayMerchant string, amount decimal.Decimal, occurredAt time.Time, bank string) string {
	return fmt.Sprintf("%s|%s|%s|%s", displayMerchant, amount.String(), occurredAt.Format("2006-01-02"), bank)
}

// Dedupe resolves candidates and collapses duplicates, preferring the
// candidate with the highest confidence and breaking ties toward the
// latest extraction pass. Output is ordered by occurrence time
// ascending so repeated runs over the same input are identical.
func Dedupe(candidates []model.Candidate, resolver *merchant.Resolver) []model.Transaction {
	best := make(map[string]model.Candidate)
	keys := make(map[string]string) // dedupe key -> normalized merchant

	for _, c := range candidates {
		normalized := merchant.Normalize(c.RawMerchant)
		res := resolver.Resolve(normalized)
		key := dedupeKey(res.DisplayName, c.Amount, c.OccurredAt, c.BankName)

		cur, ok := best[key]
		if !ok || c.Confidence > cur.Confidence ||
			(c.Confidence == cur.Confidence && c.Pass > cur.Pass) {
			best[key] = c
			keys[key] = normalized
		}
	}

	now := time.Now()
	result := make([]model.Transaction, 0, len(best))
	for key, c := range best {
		normalized := keys[key]
		res := resolver.Resolve(normalized)

		t := model.Transaction{
			ID:                 uuid.New().String(),
			RawText:            c.RawText,
			RawMerchant:        c.RawMerchant,
			NormalizedMerchant: normalized,
			DisplayMerchant:    res.DisplayName,
			IsDebit:            c.IsDebit,
			OccurredAt:         c.OccurredAt,
			BankName:           c.BankName,
			Confidence:         c.Confidence,
			Category:           res.Category,
			CategoryColor:      res.CategoryColor,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		t.SetAmount(c.Amount)
		result = append(result, t)
	}

	sortStable(result)
	return result
}

// Merge folds freshly extracted transactions into an already-persisted
// set. On a key collision the persisted record wins (its ID is already
// referenced elsewhere) unless the new record carries strictly higher
// confidence, in which case the new data keeps the old ID.
func Merge(persisted, extracted []model.Transaction) []model.Transaction {
	byKey := make(map[string]model.Transaction, len(persisted))
	for _, t := range persisted {
		byKey[dedupeKey(t.DisplayMerchant, t.Amount, t.OccurredAt, t.BankName)] = t
	}

	for _, t := range extracted {
		key := dedupeKey(t.DisplayMerchant, t.Amount, t.OccurredAt, t.BankName)
		cur, ok := byKey[key]
		if !ok {
			byKey[key] = t
			continue
		}
		if t.Confidence > cur.Confidence {
			t.ID = cur.ID
			t.CreatedAt = cur.CreatedAt
			byKey[key] = t
		}
	}

	result := make([]model.Transaction, 0, len(byKey))
	for _, t := range byKey {
		result = append(result, t)
	}
	sortStable(result)
	return result
}

func sortStable(txns []model.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].OccurredAt.Equal(txns[j].OccurredAt) {
			return txns[i].OccurredAt.Before(txns[j].OccurredAt)
		}
		if txns[i].DisplayMerchant != txns[j].DisplayMerchant {
			return txns[i].DisplayMerchant < txns[j].DisplayMerchant
		}
		return txns[i].ID < txns[j].ID
	})
}
