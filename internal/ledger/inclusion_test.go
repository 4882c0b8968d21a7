package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/expensemanager/core/internal/events"
	"github.com/expensemanager/core/internal/model"
	"github.com/expensemanager/core/internal/store"
)

func newTestInclusion(t *testing.T) (*InclusionState, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	s, err := LoadInclusionState(context.Background(), kv, nil)
	if err != nil {
		t.Fatalf("LoadInclusionState() error = %v", err)
	}
	return s, kv
}

func TestIncludedDefaultsTrue(t *testing.T) {
	s, _ := newTestInclusion(t)
	if !s.Included("Swiggy") {
		t.Error("Included() = false for unknown merchant, want true")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestInclusion(t)

	included, err := s.Toggle(ctx, "Swiggy")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if included {
		t.Error("first Toggle() = true, want false")
	}
	if s.Included("Swiggy") {
		t.Error("Included() = true after exclusion")
	}

	// Durable: a fresh load over the same store agrees.
	s2, err := LoadInclusionState(ctx, kv, nil)
	if err != nil {
		t.Fatalf("LoadInclusionState() error = %v", err)
	}
	if s2.Included("Swiggy") {
		t.Error("reloaded state lost exclusion")
	}

	included, err = s.Toggle(ctx, "Swiggy")
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !included {
		t.Error("second Toggle() = false, want true")
	}
}

func TestInclusionKeyedByTrimmedDisplayName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestInclusion(t)

	if err := s.Set(ctx, "  Swiggy  ", false); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if s.Included("Swiggy") {
		t.Error("trimmed lookup missed the untrimmed write")
	}
}

func TestLoadMigratesUntrimmedInclusionKeys(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()

	encoded, err := json.Marshal(map[string]bool{" Swiggy ": false})
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Put(ctx, "inclusion_states", string(encoded)); err != nil {
		t.Fatal(err)
	}

	s, err := LoadInclusionState(ctx, kv, nil)
	if err != nil {
		t.Fatalf("LoadInclusionState() error = %v", err)
	}
	if s.Included("Swiggy") {
		t.Error("legacy untrimmed key not migrated")
	}

	raw, ok, err := kv.Get(ctx, "inclusion_states")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", raw, ok, err)
	}
	stored := make(map[string]bool)
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatal(err)
	}
	if _, ok := stored["Swiggy"]; !ok {
		t.Errorf("stored keys = %v, want canonical %q", stored, "Swiggy")
	}
}

func TestExcludedMerchantsSorted(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestInclusion(t)

	for _, name := range []string{"Zomato", "Amazon", "Swiggy"} {
		if err := s.Set(ctx, name, false); err != nil {
			t.Fatal(err)
		}
	}
	// A re-included merchant is not listed.
	if err := s.Set(ctx, "Swiggy", true); err != nil {
		t.Fatal(err)
	}

	got := s.ExcludedMerchants()
	want := []string{"Amazon", "Zomato"}
	if len(got) != len(want) {
		t.Fatalf("ExcludedMerchants() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExcludedMerchants() = %v, want %v", got, want)
		}
	}
}

func TestInclusionEvents(t *testing.T) {
	ctx := context.Background()
	broker := events.NewBroker()
	ch, cancel := broker.Subscribe(2)
	defer cancel()

	s, err := LoadInclusionState(ctx, store.NewMemoryStore(), broker)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "Swiggy", false); err != nil {
		t.Fatal(err)
	}

	ev := <-ch
	if ev.Type != events.InclusionChanged || ev.DisplayName != "Swiggy" {
		t.Errorf("event = %+v, want InclusionChanged for Swiggy", ev)
	}
}

func TestApplyInclusion(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestInclusion(t)
	if err := s.Set(ctx, "Zomato", false); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{ID: "1", DisplayMerchant: "Swiggy", OccurredAt: at},
		{ID: "2", DisplayMerchant: "Zomato", OccurredAt: at},
		{ID: "3", DisplayMerchant: "Swiggy", OccurredAt: at},
	}

	got := ApplyInclusion(txns, s)
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	for _, tx := range got {
		if tx.DisplayMerchant == "Zomato" {
			t.Error("excluded merchant survived the filter")
		}
	}

	// Same state, same input, same output.
	again := ApplyInclusion(txns, s)
	if len(again) != len(got) {
		t.Errorf("filter not deterministic: %d vs %d", len(again), len(got))
	}
}
