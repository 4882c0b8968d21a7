// Package analytics buckets transaction sets into time series and
// ranks spending by category and merchant.
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/model"
)

// Aggregate buckets transactions into contiguous [start, end) periods.
// Every step yields a bucket even when nothing falls in it, so the
// series has no gaps and always covers the requested range. A
// transaction exactly on a bucket's end boundary belongs to the next
// bucket.
func Aggregate(txns []model.Transaction, g model.Granularity, start, end time.Time) []model.PeriodBucket {
	if !start.Before(end) {
		return nil
	}

	var buckets []model.PeriodBucket
	for cur := start; cur.Before(end); cur = advance(cur, g) {
		next := advance(cur, g)
		if next.After(end) {
			next = end
		}
		buckets = append(buckets, model.PeriodBucket{
			Index:  len(buckets),
			Label:  label(cur, g),
			Start:  cur,
			End:    next,
			Amount: decimal.Zero,
		})
	}

	for _, t := range txns {
		if t.OccurredAt.Before(start) || !t.OccurredAt.Before(end) {
			continue
		}
		for i := range buckets {
			if !t.OccurredAt.Before(buckets[i].Start) && t.OccurredAt.Before(buckets[i].End) {
				buckets[i].Amount = buckets[i].Amount.Add(t.Amount)
				buckets[i].Count++
				break
			}
		}
	}

	return buckets
}

// SuggestGranularity picks a sensible default bucket width for a range.
// Elapsed time is measured against min(end, now) so a partially-elapsed
// month is not bucketed as if it had fully passed.
func SuggestGranularity(start, end, now time.Time) model.Granularity {
	effectiveEnd := end
	if now.Before(end) {
		effectiveEnd = now
	}

	elapsedDays := effectiveEnd.Sub(start).Hours() / 24
	switch {
	case elapsedDays <= 7:
		return model.GranularityDaily
	case elapsedDays <= 35:
		return model.GranularityWeekly
	default:
		return model.GranularityMonthly
	}
}

// Selection is the sticky granularity choice for an aggregation
// session: automatic until the user overrides it, manual from then on
// until reset or a fresh session.
type Selection struct {
	manual bool
	chosen model.Granularity
}

// AutoSelection follows SuggestGranularity for every range.
func AutoSelection() Selection {
	return Selection{}
}

// ManualSelection pins the given granularity across range changes.
func ManualSelection(g model.Granularity) Selection {
	return Selection{manual: true, chosen: g}
}

// IsManual reports whether the user has overridden the suggestion.
func (s Selection) IsManual() bool {
	return s.manual
}

// Effective resolves the granularity to use for a range.
func (s Selection) Effective(start, end, now time.Time) model.Granularity {
	if s.manual {
		return s.chosen
	}
	return SuggestGranularity(start, end, now)
}

func advance(t time.Time, g model.Granularity) time.Time {
	switch g {
	case model.GranularityDaily:
		return t.AddDate(0, 0, 1)
	case model.GranularityWeekly:
		return t.AddDate(0, 0, 7)
	case model.GranularityQuarterly:
		return t.AddDate(0, 3, 0)
	case model.GranularityYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// label renders the human bucket caption; the structured Start/End and
// Index carry the real semantics for anything beyond display.
func label(start time.Time, g model.Granularity) string {
	switch g {
	case model.GranularityDaily, model.GranularityWeekly:
		return start.Format("Jan 02")
	case model.GranularityQuarterly:
		return fmt.Sprintf("Q%d", (int(start.Month())-1)/3+1)
	case model.GranularityYearly:
		return start.Format("2006")
	default:
		return start.Format("Jan")
	}
}
