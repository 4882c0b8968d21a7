// Package parser turns raw bank/payment messages into transaction
// candidates using ordered, confidence-scored extraction patterns.
package parser

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/expensemanager/core/internal/logger"
	"github.com/expensemanager/core/internal/model"
)

const (
	// maxPlausibleAmount rejects garbage captures like long reference
	// numbers read as money. One crore, for the INR message corpus.
	maxPlausibleAmount = 10_000_000

	minMerchantLen = 3

	// corroborating signals add to the pattern's base confidence
	bankSignalBonus      = 0.05
	directionSignalBonus = 0.05
	maxConfidence        = 0.99
)

// Extractor extracts transaction candidates from raw message text.
// The zero value is ready to use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract applies the pattern list to one message and returns the first
// candidate with a plausible amount and a usable merchant token, or nil
// when no pattern matches. It never fails on malformed text.
func (e *Extractor) Extract(rawText, bankHint string, receivedAt time.Time) *model.Candidate {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		amount, ok := parseAmount(m[p.amountIdx])
		if !ok {
			continue
		}

		merchant := CleanMerchantToken(m[p.merchantIdx])
		if merchant == "" {
			continue
		}

		isDebit, directionExplicit := detectDirection(text, p)
		bank := detectBank(text, bankHint)

		confidence := p.confidence
		if bank != "" {
			confidence += bankSignalBonus
		}
		if directionExplicit {
			confidence += directionSignalBonus
		}
		if confidence > maxConfidence {
			confidence = maxConfidence
		}

		return &model.Candidate{
			RawText:     rawText,
			RawMerchant: merchant,
			Amount:      amount,
			IsDebit:     isDebit,
			OccurredAt:  occurredAt(text, receivedAt),
			BankName:    bank,
			Confidence:  confidence,
		}
	}

	return nil
}

// ExtractBatch extracts candidates from a batch of messages, tagging
// each with the given pass number. Messages are independent, so a
// failure on one never aborts the rest; cancellation is checked between
// messages, never mid-message.
func (e *Extractor) ExtractBatch(ctx context.Context, msgs []model.Message, pass int) ([]model.Candidate, error) {
	log := logger.FromContext(ctx)

	candidates := make([]model.Candidate, 0, len(msgs))
	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			return candidates, ctx.Err()
		default:
		}

		c := e.Extract(msg.Body, msg.BankHint, msg.ReceivedAt)
		if c == nil {
			log.Debug().Str("body", truncate(msg.Body, 60)).Msg("no extraction pattern matched, dropping message")
			continue
		}
		c.Pass = pass
		candidates = append(candidates, *c)
	}
	return candidates, nil
}

// CleanMerchantToken cleans a raw merchant capture: cut at the first
// special character, collapse whitespace, trim. Returns "" when the
// remainder is too short or is a generic banking term.
func CleanMerchantToken(raw string) string {
	s := raw
	if idx := strings.IndexAny(s, "*#@-_"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSpace(s)

	if len(s) < minMerchantLen {
		return ""
	}
	if _, generic := stoplist[strings.ToUpper(s)]; generic {
		return ""
	}
	return s
}

// parseAmount parses a captured amount like "1,234.56".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if !amount.IsPositive() || amount.GreaterThan(decimal.NewFromInt(maxPlausibleAmount)) {
		return decimal.Zero, false
	}
	return amount, true
}

// detectDirection determines debit/credit from the matched pattern or
// the message keywords. Ambiguous messages default to debit.
func detectDirection(text string, p pattern) (isDebit, explicit bool) {
	if p.directional {
		return p.isDebit, true
	}

	lower := strings.ToLower(text)
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return false, true
		}
	}
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true, true
		}
	}
	return true, false
}

// detectBank resolves the bank name from the caller's hint or from
// issuer tokens in the body.
func detectBank(text, bankHint string) string {
	if hint := strings.TrimSpace(bankHint); hint != "" {
		return strings.ToUpper(hint)
	}
	lower := strings.ToLower(text)
	for _, b := range knownBanks {
		if strings.Contains(lower, b.token) {
			return b.name
		}
	}
	return ""
}

// occurredAt prefers the transaction date the bank put in the message
// body, falling back to the message receipt time.
func occurredAt(text string, receivedAt time.Time) time.Time {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return receivedAt
	}
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, m[1], receivedAt.Location()); err == nil {
			if t.Year() < 100 {
				t = t.AddDate(2000, 0, 0)
			}
			return t
		}
	}
	return receivedAt
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
