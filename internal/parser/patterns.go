package parser

import "regexp"

// A pattern pairs a merchant-locating rule with an amount-locating rule.
// Patterns are tried in order; the slice is sorted most-specific first
// and base confidence is monotonically non-increasing, so the first hit
// is also the best-scored one.
type pattern struct {
	name string
	re   *regexp.Regexp
	// submatch indexes for the amount and merchant groups
	amountIdx   int
	merchantIdx int
	isDebit     bool // direction implied by the pattern itself
	directional bool // whether isDebit is meaningful for this pattern
	confidence  float64
}

const amountGroup = `(?:rs\.?|inr|₹)\s*([0-9,]+(?:\.[0-9]{1,2})?)`

var patterns = []pattern{
	{
		// "Rs.450.00 debited from A/c ... for SWIGGY*ORDER123 on 05-01-24"
		name:        "debited-for",
		re:          regexp.MustCompile(`(?i)` + amountGroup + `\s+(?:has been\s+)?(?:debited|deducted).*?(?:for|to|at|towards)\s+([A-Za-z0-9][^\s,;]*(?:\s+[A-Za-z0-9][^\s,;]*)*?)(?:\s+on\s|\s+ref\s|\.|,|$)`),
		amountIdx:   1,
		merchantIdx: 2,
		isDebit:     true,
		directional: true,
		confidence:  0.90,
	},
	{
		// "Spent Rs.1200 on HDFC Card at BIGBASKET on 12-02-24"
		name:        "spent-at",
		re:          regexp.MustCompile(`(?i)(?:spent|purchase of)\s+` + amountGroup + `.*?\bat\s+([A-Za-z0-9][^\s,;]*(?:\s+[A-Za-z0-9][^\s,;]*)*?)(?:\s+on\s|\.|,|$)`),
		amountIdx:   1,
		merchantIdx: 2,
		isDebit:     true,
		directional: true,
		confidence:  0.88,
	},
	{
		// "Paid Rs.250 to RELIANCE FRESH via UPI"
		name:        "paid-to",
		re:          regexp.MustCompile(`(?i)paid\s+` + amountGroup + `\s+to\s+([A-Za-z0-9][^\s,;]*(?:\s+[A-Za-z0-9][^\s,;]*)*?)(?:\s+via\s|\s+using\s|\s+on\s|\.|,|$)`),
		amountIdx:   1,
		merchantIdx: 2,
		isDebit:     true,
		directional: true,
		confidence:  0.85,
	},
	{
		// "Your a/c is credited with Rs.5000 from ACME CORP"
		name:        "credited-from",
		re:          regexp.MustCompile(`(?i)credited\s+(?:with\s+|by\s+)?` + amountGroup + `.*?\bfrom\s+([A-Za-z0-9][^\s,;]*(?:\s+[A-Za-z0-9][^\s,;]*)*?)(?:\s+on\s|\.|,|$)`),
		amountIdx:   1,
		merchantIdx: 2,
		isDebit:     false,
		directional: true,
		confidence:  0.85,
	},
	{
		// UPI collect / VPA style: "... to VPA swiggy@ybl Rs.450 debited"
		name:        "vpa",
		re:          regexp.MustCompile(`(?i)(?:to|from)\s+(?:vpa\s+)?([a-z0-9.\-_]{3,}@[a-z]{2,}).*?` + amountGroup),
		amountIdx:   2,
		merchantIdx: 1,
		confidence:  0.80,
	},
	{
		// Generic fallback: an amount plus a "at|for|to <token>" anywhere.
		name:        "generic",
		re:          regexp.MustCompile(`(?i)` + amountGroup + `.*?(?:\bat|\bfor|\bto)\s+([A-Za-z0-9][^\s,;]*(?:\s+[A-Za-z0-9][^\s,;]*)?)`),
		amountIdx:   1,
		merchantIdx: 2,
		confidence:  0.55,
	},
}

// stoplist holds generic banking terms that must never be surfaced as a
// merchant. Extraction fails rather than emitting one of these.
var stoplist = map[string]struct{}{
	"BANK":        {},
	"UPI":         {},
	"NEFT":        {},
	"IMPS":        {},
	"RTGS":        {},
	"ATM":         {},
	"CARD":        {},
	"ACCOUNT":     {},
	"TRANSFER":    {},
	"TRANSACTION": {},
	"AMOUNT":      {},
	"BALANCE":     {},
	"PAYMENT":     {},
	"CREDIT":      {},
	"DEBIT":       {},
	"WALLET":      {},
	"VPA":         {},
	"INFO":        {},
	"AVAILABLE":   {},
}

// debitKeywords and creditKeywords drive direction detection when the
// matching pattern is not directional. Ambiguous messages default to
// debit.
var debitKeywords = []string{"debited", "deducted", "spent", "paid", "withdrawn", "purchase"}

var creditKeywords = []string{"credited", "received", "refund", "refunded", "reversed", "cashback"}

// knownBanks maps issuer tokens found in message bodies to bank names.
// Ordered so detection is deterministic when a body names two issuers.
var knownBanks = []struct{ token, name string }{
	{"hdfc", "HDFC"},
	{"icici", "ICICI"},
	{"sbi", "SBI"},
	{"axis", "AXIS"},
	{"kotak", "KOTAK"},
	{"yes bank", "YES"},
	{"pnb", "PNB"},
	{"idfc", "IDFC"},
	{"canara", "CANARA"},
	{"bob", "BOB"},
}

// datePattern matches the transaction date banks append ("on 05-01-24").
var datePattern = regexp.MustCompile(`(?i)\bon\s+(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{4}-\d{2}-\d{2})`)

// dateFormats to try when parsing an in-message date.
var dateFormats = []string{
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2006-01-02",
	"02-01-06",
	"2-1-06",
	"02/01/06",
	"2/1/06",
}
