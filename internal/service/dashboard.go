package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/analytics"
	"github.com/expensemanager/core/internal/ledger"
	"github.com/expensemanager/core/internal/model"
)

const (
	topRankSize = 5

	// autoCategorizeConfidence gates which unaliased transactions count
	// as auto-categorized rather than guesses needing review.
	autoCategorizeConfidence = 0.7
)

// Dashboard is the aggregated spend view for one period.
type Dashboard struct {
	Period      string
	Start       time.Time
	End         time.Time
	Granularity model.Granularity

	TotalSpent           decimal.Decimal
	TotalReceived        decimal.Decimal
	TransactionCount     int
	AutoCategorizedCount int

	Series        []model.PeriodBucket
	TopCategories []model.CategorySpending
	TopMerchants  []model.MerchantSpending
	Groups        []model.MerchantGroup
}

// DashboardForPeriod builds the spend view for a named period such as
// "This Month". Totals, series and rankings count only included debit
// transactions; Groups lists every merchant so excluded ones can be
// re-included.
func (s *ExpenseService) DashboardForPeriod(ctx context.Context, periodName string) (Dashboard, error) {
	start, end := s.periods.RangeFor(periodName)
	d, err := s.dashboard(ctx, start, end)
	if err != nil {
		return Dashboard{}, err
	}
	d.Period = periodName
	return d, nil
}

// DashboardForMonth builds the spend view for one calendar month.
func (s *ExpenseService) DashboardForMonth(ctx context.Context, month time.Month, year int) (Dashboard, error) {
	start, end := s.periods.CustomMonthRange(month, year)
	d, err := s.dashboard(ctx, start, end)
	if err != nil {
		return Dashboard{}, err
	}
	d.Period = start.Format("January 2006")
	return d, nil
}

func (s *ExpenseService) dashboard(ctx context.Context, start, end time.Time) (Dashboard, error) {
	txns, err := s.TransactionsForRange(ctx, start, end)
	if err != nil {
		return Dashboard{}, err
	}

	granularity := s.currentSelection().Effective(start, end, s.now())

	included := ledger.ApplyInclusion(txns, s.inclusion)
	debits := filterDebits(included)

	d := Dashboard{
		Start:            start,
		End:              end,
		Granularity:      granularity,
		TransactionCount: len(included),
		Series:           analytics.Aggregate(debits, granularity, start, end),
		TopCategories:    analytics.TopCategories(debits, topRankSize),
		TopMerchants:     analytics.TopMerchants(debits, topRankSize),
		Groups:           ledger.GroupByMerchant(txns, s.inclusion),
	}
	for _, t := range included {
		if t.IsDebit {
			d.TotalSpent = d.TotalSpent.Add(t.Amount)
		} else {
			d.TotalReceived = d.TotalReceived.Add(t.Amount)
		}
		if _, ok := s.resolver.Alias(t.NormalizedMerchant); !ok && t.Confidence >= autoCategorizeConfidence {
			d.AutoCategorizedCount++
		}
	}
	return d, nil
}

// PeriodComparison reports the current period's spend next to the
// mirrored previous period's.
type PeriodComparison struct {
	Period   string
	Current  decimal.Decimal
	Previous decimal.Decimal
	// ChangePercent is 0 when the previous period had no spend.
	ChangePercent float64
}

// ComparePeriod computes included debit spend for a named period and
// the calendar period before it.
func (s *ExpenseService) ComparePeriod(ctx context.Context, periodName string) (PeriodComparison, error) {
	start, end := s.periods.RangeFor(periodName)
	prevStart, prevEnd := s.periods.PreviousRangeFor(periodName, start, end)

	current, err := s.includedDebitTotal(ctx, start, end)
	if err != nil {
		return PeriodComparison{}, err
	}
	previous, err := s.includedDebitTotal(ctx, prevStart, prevEnd)
	if err != nil {
		return PeriodComparison{}, err
	}

	c := PeriodComparison{Period: periodName, Current: current, Previous: previous}
	if previous.IsPositive() {
		change, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
		c.ChangePercent = change
	}
	return c, nil
}

func (s *ExpenseService) includedDebitTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	txns, err := s.TransactionsForRange(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range ledger.ApplyInclusion(txns, s.inclusion) {
		if t.IsDebit {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func filterDebits(txns []model.Transaction) []model.Transaction {
	debits := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.IsDebit {
			debits = append(debits, t)
		}
	}
	return debits
}
