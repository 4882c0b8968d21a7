package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/model"
)

// TopCategories ranks spending by resolved category: summed amount,
// transaction count and share of the set's total, sorted by amount
// descending with a name tie-break, truncated to n. When fewer real
// categories exist than a view wants to show, the short list is
// returned as-is; placeholder filling is a presentation concern.
func TopCategories(txns []model.Transaction, n int) []model.CategorySpending {
	type agg struct {
		amount decimal.Decimal
		count  int
		color  string
	}
	byCategory := make(map[string]*agg)
	total := decimal.Zero

	for _, t := range txns {
		a, ok := byCategory[t.Category]
		if !ok {
			a = &agg{amount: decimal.Zero, color: t.CategoryColor}
			byCategory[t.Category] = a
		}
		a.amount = a.amount.Add(t.Amount)
		a.count++
		total = total.Add(t.Amount)
	}

	results := make([]model.CategorySpending, 0, len(byCategory))
	for name, a := range byCategory {
		results = append(results, model.CategorySpending{
			Name:       name,
			Amount:     a.amount,
			Count:      a.count,
			Percentage: percentage(a.amount, total),
			Color:      a.color,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Amount.Equal(results[j].Amount) {
			return results[i].Amount.GreaterThan(results[j].Amount)
		}
		return results[i].Name < results[j].Name
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}

// TopMerchants ranks spending by display merchant, same ordering and
// truncation rules as TopCategories.
func TopMerchants(txns []model.Transaction, n int) []model.MerchantSpending {
	type agg struct {
		amount decimal.Decimal
		count  int
		color  string
	}
	byMerchant := make(map[string]*agg)
	total := decimal.Zero

	for _, t := range txns {
		a, ok := byMerchant[t.DisplayMerchant]
		if !ok {
			a = &agg{amount: decimal.Zero, color: t.CategoryColor}
			byMerchant[t.DisplayMerchant] = a
		}
		a.amount = a.amount.Add(t.Amount)
		a.count++
		total = total.Add(t.Amount)
	}

	results := make([]model.MerchantSpending, 0, len(byMerchant))
	for name, a := range byMerchant {
		results = append(results, model.MerchantSpending{
			Name:       name,
			Amount:     a.amount,
			Count:      a.count,
			Percentage: percentage(a.amount, total),
			Color:      a.color,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].Amount.Equal(results[j].Amount) {
			return results[i].Amount.GreaterThan(results[j].Amount)
		}
		return results[i].Name < results[j].Name
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}

// percentage of total, 0 when the total is 0.
func percentage(amount, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	pct, _ := amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
