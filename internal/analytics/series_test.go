package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/model"
)

func seriesTxn(amount string, at time.Time) model.Transaction {
	return model.Transaction{
		Amount:     decimal.RequireFromString(amount),
		IsDebit:    true,
		OccurredAt: at,
	}
}

func TestAggregateDaily(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	txns := []model.Transaction{
		seriesTxn("100", start.Add(10*time.Hour)),
		seriesTxn("50", start.AddDate(0, 0, 2)),
		seriesTxn("25", start.AddDate(0, 0, 2).Add(23*time.Hour)),
	}

	buckets := Aggregate(txns, model.GranularityDaily, start, end)
	if len(buckets) != 5 {
		t.Fatalf("got %d buckets, want 5", len(buckets))
	}

	if !buckets[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("bucket 0 = %s, want 100", buckets[0].Amount)
	}
	if !buckets[2].Amount.Equal(decimal.NewFromInt(75)) || buckets[2].Count != 2 {
		t.Errorf("bucket 2 = %s (%d), want 75 (2)", buckets[2].Amount, buckets[2].Count)
	}
	// An empty day still yields a bucket.
	if !buckets[1].Amount.IsZero() || buckets[1].Count != 0 {
		t.Errorf("bucket 1 = %s (%d), want empty", buckets[1].Amount, buckets[1].Count)
	}
}

func TestAggregateBucketsAreContiguous(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	for _, g := range []model.Granularity{
		model.GranularityDaily,
		model.GranularityWeekly,
		model.GranularityMonthly,
	} {
		buckets := Aggregate(nil, g, start, end)
		if len(buckets) == 0 {
			t.Fatalf("%s: no buckets", g)
		}
		if !buckets[0].Start.Equal(start) {
			t.Errorf("%s: first bucket starts %s, want %s", g, buckets[0].Start, start)
		}
		if !buckets[len(buckets)-1].End.Equal(end) {
			t.Errorf("%s: last bucket ends %s, want %s", g, buckets[len(buckets)-1].End, end)
		}
		for i := 1; i < len(buckets); i++ {
			if !buckets[i].Start.Equal(buckets[i-1].End) {
				t.Errorf("%s: gap between bucket %d and %d", g, i-1, i)
			}
			if buckets[i].Index != i {
				t.Errorf("%s: bucket %d has Index %d", g, i, buckets[i].Index)
			}
		}
	}
}

// every in-range transaction lands in exactly one bucket
func TestAggregateConservation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	txns := []model.Transaction{
		seriesTxn("100", start),
		seriesTxn("200", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)),
		seriesTxn("300", time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)),
		// out of range both ways
		seriesTxn("999", start.Add(-time.Second)),
		seriesTxn("999", end),
	}

	buckets := Aggregate(txns, model.GranularityMonthly, start, end)

	total := decimal.Zero
	count := 0
	for _, b := range buckets {
		total = total.Add(b.Amount)
		count += b.Count
	}
	if !total.Equal(decimal.NewFromInt(600)) {
		t.Errorf("bucketed total = %s, want 600", total)
	}
	if count != 3 {
		t.Errorf("bucketed count = %d, want 3", count)
	}
}

func TestAggregateBoundaryBelongsToNextBucket(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	boundary := start.AddDate(0, 0, 1)
	buckets := Aggregate([]model.Transaction{seriesTxn("100", boundary)}, model.GranularityDaily, start, end)

	if buckets[0].Count != 0 {
		t.Error("boundary transaction counted in the earlier bucket")
	}
	if buckets[1].Count != 1 {
		t.Error("boundary transaction missing from the later bucket")
	}
}

func TestAggregateEmptyRange(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := Aggregate(nil, model.GranularityDaily, at, at); got != nil {
		t.Errorf("Aggregate over empty range = %v, want nil", got)
	}
}

func TestSuggestGranularity(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  model.Granularity
	}{
		{
			name:  "week gets daily",
			start: now.AddDate(0, 0, -6),
			end:   now,
			want:  model.GranularityDaily,
		},
		{
			name:  "month gets weekly",
			start: now.AddDate(0, -1, 0),
			end:   now,
			want:  model.GranularityWeekly,
		},
		{
			name:  "quarter gets monthly",
			start: now.AddDate(0, -3, 0),
			end:   now,
			want:  model.GranularityMonthly,
		},
		{
			name:  "partially elapsed month measures elapsed time only",
			start: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
			want:  model.GranularityDaily,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestGranularity(tt.start, tt.end, now); got != tt.want {
				t.Errorf("SuggestGranularity() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectionSticky(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	weekStart, weekEnd := now.AddDate(0, 0, -6), now
	yearStart := now.AddDate(-1, 0, 0)

	auto := AutoSelection()
	if auto.IsManual() {
		t.Error("AutoSelection().IsManual() = true")
	}
	if got := auto.Effective(weekStart, weekEnd, now); got != model.GranularityDaily {
		t.Errorf("auto over a week = %s, want Daily", got)
	}
	// Automatic mode re-suggests when the range changes.
	if got := auto.Effective(yearStart, now, now); got != model.GranularityMonthly {
		t.Errorf("auto over a year = %s, want Monthly", got)
	}

	manual := ManualSelection(model.GranularityYearly)
	if !manual.IsManual() {
		t.Error("ManualSelection().IsManual() = false")
	}
	// Manual mode survives range changes.
	for _, r := range []struct{ s, e time.Time }{{weekStart, weekEnd}, {yearStart, now}} {
		if got := manual.Effective(r.s, r.e, now); got != model.GranularityYearly {
			t.Errorf("manual over %s..%s = %s, want Yearly", r.s, r.e, got)
		}
	}
}

func TestBucketLabels(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		g    model.Granularity
		want string
	}{
		{model.GranularityDaily, "Apr 01"},
		{model.GranularityWeekly, "Apr 01"},
		{model.GranularityMonthly, "Apr"},
		{model.GranularityQuarterly, "Q2"},
		{model.GranularityYearly, "2024"},
	}

	for _, tt := range tests {
		buckets := Aggregate(nil, tt.g, start, start.AddDate(0, 0, 1))
		if len(buckets) == 0 {
			t.Fatalf("%s: no buckets", tt.g)
		}
		if buckets[0].Label != tt.want {
			t.Errorf("%s label = %q, want %q", tt.g, buckets[0].Label, tt.want)
		}
	}
}
