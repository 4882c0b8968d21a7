// Package insights generates optional natural-language spending
// insights with the Gemini API. It sits outside the pipeline: a
// failure here never affects extraction, dedup or aggregation.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/expensemanager/core/internal/model"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Generator produces spending insights from aggregated dashboard data.
type Generator struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewGenerator creates a Gemini-backed insight generator. An empty API
// key disables it; Generate then returns ErrDisabled.
func NewGenerator(apiKey string) *Generator {
	return &Generator{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = fmt.Errorf("insights: Gemini API key not configured")

// Insight is one observation about spending behavior.
type Insight struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"` // info, warning, positive
}

type insightResponse struct {
	Insights []Insight `json:"insights"`
}

// spendingForPrompt is the simplified summary sent to the model. Only
// category and merchant aggregates go over the wire, never raw
// message text.
type spendingForPrompt struct {
	Period     string           `json:"period"`
	TotalSpent string           `json:"total_spent"`
	Categories []categoryPrompt `json:"categories,omitempty"`
	Merchants  []merchantPrompt `json:"merchants,omitempty"`
}

type categoryPrompt struct {
	Name       string  `json:"name"`
	Amount     string  `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type merchantPrompt struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Count  int    `json:"count"`
}

// Generate asks Gemini for up to three insights about the given
// period's spending. Callers treat any error as a missing insights
// panel, not a pipeline failure.
func (g *Generator) Generate(ctx context.Context, period string, totalSpent string, categories []model.CategorySpending, merchants []model.MerchantSpending) ([]Insight, error) {
	if g.apiKey == "" {
		return nil, ErrDisabled
	}

	summary := spendingForPrompt{Period: period, TotalSpent: totalSpent}
	for _, c := range categories {
		summary.Categories = append(summary.Categories, categoryPrompt{
			Name:       c.Name,
			Amount:     c.Amount.StringFixed(2),
			Percentage: c.Percentage,
		})
	}
	for _, m := range merchants {
		summary.Merchants = append(summary.Merchants, merchantPrompt{
			Name:   m.Name,
			Amount: m.Amount.StringFixed(2),
			Count:  m.Count,
		})
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal spending summary: %w", err)
	}

	prompt := fmt.Sprintf(`You are a personal finance assistant. Given a spending summary, produce up to 3 short, specific insights about spending behavior.

Rules:
- Be concrete: reference actual categories, merchants and amounts from the data
- Never invent transactions or amounts not in the data
- severity is "warning" for concerning patterns, "positive" for good ones, "info" otherwise

Return JSON only:
{"insights": [{"title": "...", "body": "...", "severity": "info|warning|positive"}]}

Spending summary:
%s`, string(summaryJSON))

	return g.callGemini(ctx, prompt)
}

func (g *Generator) callGemini(ctx context.Context, prompt string) ([]Insight, error) {
	url := fmt.Sprintf("%s/models/gemini-2.0-flash:generateContent?key=%s", g.baseURL, g.apiKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.2,
			"maxOutputTokens":  1024,
			"responseMimeType": "application/json",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error %d: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("parse Gemini response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty Gemini response")
	}

	text := geminiResp.Candidates[0].Content.Parts[0].Text
	// Strip markdown code fences if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed insightResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse insights response: %w", err)
	}

	return parsed.Insights, nil
}
