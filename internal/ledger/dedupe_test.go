package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/merchant"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/store"
)

func testResolver(t *testing.T) *merchant.Resolver {
	t.Helper()
	r, err := merchant.NewResolver(context.Background(), store.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func candidate(raw string, amount string, at time.Time, conf float64, pass int) model.Candidate {
	return model.Candidate{
		RawText:     "msg",
		RawMerchant: raw,
		Amount:      decimal.RequireFromString(amount),
		IsDebit:     true,
		OccurredAt:  at,
		BankName:    "HDFC",
		Confidence:  conf,
		Pass:        pass,
	}
}

func TestDedupeCollapsesSameDayDuplicates(t *testing.T) {
	r := testResolver(t)
	morning := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC)

	candidates := []model.Candidate{
		candidate("SWIGGY", "450", morning, 0.90, 1),
		// same merchant, amount, day and bank: a re-sent alert
		candidate("swiggy", "450", evening, 0.95, 1),
		// different amount survives
		candidate("SWIGGY", "250", morning, 0.90, 1),
	}

	txns := Dedupe(candidates, r)
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}

	// The higher-confidence duplicate won.
	var got450 *model.Transaction
	for i := range txns {
		if txns[i].Amount.Equal(decimal.NewFromInt(450)) {
			got450 = &txns[i]
		}
	}
	if got450 == nil {
		t.Fatal("no 450 transaction in output")
	}
	if got450.Confidence != 0.95 {
		t.Errorf("Confidence = %.2f, want 0.95", got450.Confidence)
	}
}

func TestDedupeDifferentDaysSurvive(t *testing.T) {
	r := testResolver(t)
	day1 := time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 6, 0, 30, 0, 0, time.UTC)

	txns := Dedupe([]model.Candidate{
		candidate("SWIGGY", "450", day1, 0.9, 1),
		candidate("SWIGGY", "450", day2, 0.9, 1),
	}, r)
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
}

func TestDedupeTieBreaksTowardLaterPass(t *testing.T) {
	r := testResolver(t)
	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	c1 := candidate("SWIGGY", "450", at, 0.9, 1)
	c1.RawText = "first pass"
	c2 := candidate("SWIGGY", "450", at, 0.9, 2)
	c2.RawText = "second pass"

	txns := Dedupe([]model.Candidate{c1, c2}, r)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].RawText != "second pass" {
		t.Errorf("RawText = %q, want %q", txns[0].RawText, "second pass")
	}
}

func TestDedupeJoinsOnDisplayIdentity(t *testing.T) {
	ctx := context.Background()
	r := testResolver(t)
	if err := r.SetAlias(ctx, "swiggy", "Swiggy", "Food & Dining"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetAlias(ctx, "swiggy instamart", "Swiggy", "Food & Dining"); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	txns := Dedupe([]model.Candidate{
		candidate("SWIGGY", "450", at, 0.9, 1),
		candidate("SWIGGY INSTAMART", "450", at, 0.8, 1),
	}, r)

	// Two raw merchants, one display identity: one transaction.
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].DisplayMerchant != "Swiggy" {
		t.Errorf("DisplayMerchant = %q, want %q", txns[0].DisplayMerchant, "Swiggy")
	}
}

func TestDedupeOutputOrderIsDeterministic(t *testing.T) {
	r := testResolver(t)
	base := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	candidates := []model.Candidate{
		candidate("ZOMATO", "300", base.AddDate(0, 0, 2), 0.9, 1),
		candidate("SWIGGY", "450", base, 0.9, 1),
		candidate("AMAZON", "999", base.AddDate(0, 0, 1), 0.9, 1),
	}

	txns := Dedupe(candidates, r)
	if len(txns) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txns))
	}
	for i := 1; i < len(txns); i++ {
		if txns[i].OccurredAt.Before(txns[i-1].OccurredAt) {
			t.Errorf("output not sorted by occurrence: %v before %v",
				txns[i].OccurredAt, txns[i-1].OccurredAt)
		}
	}
}

func TestMergePersistedWins(t *testing.T) {
	r := testResolver(t)
	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	persisted := Dedupe([]model.Candidate{candidate("SWIGGY", "450", at, 0.9, 1)}, r)
	extracted := Dedupe([]model.Candidate{candidate("SWIGGY", "450", at, 0.9, 2)}, r)

	merged := Merge(persisted, extracted)
	if len(merged) != 1 {
		t.Fatalf("got %d transactions, want 1", len(merged))
	}
	if merged[0].ID != persisted[0].ID {
		t.Errorf("ID = %q, want persisted ID %q", merged[0].ID, persisted[0].ID)
	}
}

func TestMergeHigherConfidenceKeepsOldID(t *testing.T) {
	r := testResolver(t)
	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	persisted := Dedupe([]model.Candidate{candidate("SWIGGY", "450", at, 0.6, 1)}, r)
	improved := Dedupe([]model.Candidate{candidate("SWIGGY", "450", at, 0.95, 2)}, r)

	merged := Merge(persisted, improved)
	if len(merged) != 1 {
		t.Fatalf("got %d transactions, want 1", len(merged))
	}
	if merged[0].Confidence != 0.95 {
		t.Errorf("Confidence = %.2f, want 0.95", merged[0].Confidence)
	}
	if merged[0].ID != persisted[0].ID {
		t.Errorf("ID = %q, want stable persisted ID %q", merged[0].ID, persisted[0].ID)
	}
	if !merged[0].CreatedAt.Equal(persisted[0].CreatedAt) {
		t.Error("CreatedAt not carried over from persisted record")
	}
}

func TestMergeDisjointSetsUnion(t *testing.T) {
	r := testResolver(t)
	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	persisted := Dedupe([]model.Candidate{candidate("SWIGGY", "450", at, 0.9, 1)}, r)
	extracted := Dedupe([]model.Candidate{candidate("ZOMATO", "300", at, 0.9, 2)}, r)

	merged := Merge(persisted, extracted)
	if len(merged) != 2 {
		t.Fatalf("got %d transactions, want 2", len(merged))
	}
}
