package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/model"
)

// GroupByMerchant rolls transactions up per display merchant. Member
// transactions are sorted newest first; the group's category is the
// plurality vote across members (ties break toward the first seen),
// the bank is the mode of member banks, and the inclusion flag is read
// from state (default included). Groups are ordered by total descending
// with a stable name tie-break.
func GroupByMerchant(txns []model.Transaction, state *InclusionState) []model.MerchantGroup {
	byMerchant := make(map[string][]model.Transaction)
	var order []string
	for _, t := range txns {
		if _, seen := byMerchant[t.DisplayMerchant]; !seen {
			order = append(order, t.DisplayMerchant)
		}
		byMerchant[t.DisplayMerchant] = append(byMerchant[t.DisplayMerchant], t)
	}

	groups := make([]model.MerchantGroup, 0, len(order))
	for _, name := range order {
		members := byMerchant[name]
		sort.Slice(members, func(i, j int) bool {
			if !members[i].OccurredAt.Equal(members[j].OccurredAt) {
				return members[i].OccurredAt.After(members[j].OccurredAt)
			}
			return members[i].ID < members[j].ID
		})

		total := decimal.Zero
		var confidenceSum float64
		for _, t := range members {
			total = total.Add(t.Amount)
			confidenceSum += t.Confidence
		}

		included := true
		if state != nil {
			included = state.Included(name)
		}

		groups = append(groups, model.MerchantGroup{
			DisplayName:    name,
			Transactions:   members,
			Total:          total,
			Category:       pluralityCategory(members),
			BankName:       modeBank(members),
			MeanConfidence: confidenceSum / float64(len(members)),
			Included:       included,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].Total.Equal(groups[j].Total) {
			return groups[i].Total.GreaterThan(groups[j].Total)
		}
		return groups[i].DisplayName < groups[j].DisplayName
	})
	return groups
}

// pluralityCategory votes across members; a tie goes to the category
// seen first in member order.
func pluralityCategory(members []model.Transaction) string {
	counts := make(map[string]int)
	var firstSeen []string
	for _, t := range members {
		if counts[t.Category] == 0 {
			firstSeen = append(firstSeen, t.Category)
		}
		counts[t.Category]++
	}

	winner := ""
	best := 0
	for _, cat := range firstSeen {
		if counts[cat] > best {
			winner = cat
			best = counts[cat]
		}
	}
	return winner
}

// modeBank returns the most common member bank, first-seen on ties.
func modeBank(members []model.Transaction) string {
	counts := make(map[string]int)
	var firstSeen []string
	for _, t := range members {
		if counts[t.BankName] == 0 {
			firstSeen = append(firstSeen, t.BankName)
		}
		counts[t.BankName]++
	}

	winner := ""
	best := 0
	for _, bank := range firstSeen {
		if counts[bank] > best {
			winner = bank
			best = counts[bank]
		}
	}
	return winner
}
