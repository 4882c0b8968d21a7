// Package model defines the domain types shared by the extraction,
// resolution and aggregation packages.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message is one raw item from a message source, before extraction.
type Message struct {
	Body       string    `json:"body"`
	BankHint   string    `json:"bank_hint,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Candidate is an unresolved, possibly-duplicate transaction extracted
// from a single message. Candidates become Transactions only after
// identity resolution and deduplication.
type Candidate struct {
	RawText     string
	RawMerchant string
	Amount      decimal.Decimal
	IsDebit     bool
	OccurredAt  time.Time
	BankName    string
	Confidence  float64
	// Pass is the extraction pass sequence number; later passes win
	// dedup ties at equal confidence.
	Pass int
}

// Transaction is a resolved, deduplicated financial event.
// RawText and RawMerchant are immutable once extracted; the resolved
// identity fields (DisplayMerchant, Category, CategoryColor) are
// re-derived whenever an alias changes.
type Transaction struct {
	ID                 string          `firestore:"id"`
	RawText            string          `firestore:"rawText"`
	RawMerchant        string          `firestore:"rawMerchant"`
	NormalizedMerchant string          `firestore:"normalizedMerchant"`
	DisplayMerchant    string          `firestore:"displayMerchant"`
	Amount             decimal.Decimal `firestore:"-"`
	AmountCents        int64           `firestore:"amountCents"`
	IsDebit            bool            `firestore:"isDebit"`
	OccurredAt         time.Time       `firestore:"occurredAt"`
	BankName           string          `firestore:"bankName"`
	Confidence         float64         `firestore:"confidence"`
	Category           string          `firestore:"category"`
	CategoryColor      string          `firestore:"categoryColor"`
	CreatedAt          time.Time       `firestore:"createdAt"`
	UpdatedAt          time.Time       `firestore:"updatedAt"`
}

// MerchantAlias maps a normalized merchant key to its user-facing
// identity. Multiple keys may share one DisplayName.
type MerchantAlias struct {
	NormalizedName string `json:"normalized_name"`
	DisplayName    string `json:"display_name"`
	Category       string `json:"category"`
}

// Category is a spending category with its chart color.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// MerchantGroup is the per-merchant rollup shown in grouped list views.
type MerchantGroup struct {
	DisplayName    string
	Transactions   []Transaction // sorted by OccurredAt descending
	Total          decimal.Decimal
	Category       string // plurality vote across members
	BankName       string // mode of member bank names
	MeanConfidence float64
	Included       bool
}

// PeriodBucket is one interval of an aggregated series. Range is
/// half-open: a transaction at End belongs to the next bucket.
type PeriodBucket struct {
	Index  int
	Label  string
	Start  time.Time
	End    time.Time
	Amount decimal.Decimal
	Count  int
}

// CategorySpending is one row of a top-categories ranking.
type CategorySpending struct {
	Name       string
	Amount     decimal.Decimal
	Count      int
	Percentage float64 // of the ranked total, 0 when the total is 0
	Color      string
}

// MerchantSpending is one row of a top-merchants ranking.
type MerchantSpending struct {
	Name       string
	Amount     decimal.Decimal
	Count      int
	Percentage float64
	Color      string
}

// Granularity is the bucket width of an aggregated series.
type Granularity int

const (
	GranularityDaily Granularity = iota
	GranularityWeekly
	GranularityMonthly
	GranularityQuarterly
	GranularityYearly
)

func (g Granularity) String() string {
	switch g {
	case GranularityDaily:
		return "daily"
	case GranularityWeekly:
		return "weekly"
	case GranularityMonthly:
		return "monthly"
	case GranularityQuarterly:
		return "quarterly"
	case GranularityYearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// SetAmount keeps Amount and its persisted cents representation in sync.
func (t *Transaction) SetAmount(d decimal.Decimal) {
	t.Amount = d
	t.AmountCents = d.Mul(decimal.NewFromInt(100)).IntPart()
}

// RestoreAmount rebuilds the decimal Amount after a store read.
func (t *Transaction) RestoreAmount() {
	t.Amount = decimal.NewFromInt(t.AmountCents).Div(decimal.NewFromInt(100))
}
