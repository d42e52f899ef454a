// Package assistant answers questions about a normalized insider-
// transaction dataset. Questions naming an officer in the data are
// answered directly from the table; everything else goes to the LLM
// with the table as context.
package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"insider_screener/pkg/core/form4"
	"insider_screener/pkg/core/llm"
	"insider_screener/pkg/core/utils"
)

const (
	systemPrompt = "You are a financial data assistant. Answer based only on the " +
		"insider trading dataset provided in the prompt. Reply as JSON: {\"answer\": \"...markdown...\"}."

	// LLM context cap; enough for a single company's reporting window.
	maxContextRows = 200
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Assistant answers questions over one record set.
type Assistant struct {
	provider llm.Provider
	records  []form4.TransactionRecord
}

func New(provider llm.Provider, records []form4.TransactionRecord) *Assistant {
	return &Assistant{provider: provider, records: records}
}

// Answer resolves the question, preferring an exact officer lookup
// over the model.
func (a *Assistant) Answer(ctx context.Context, question string) (string, error) {
	if table, ok := a.lookupOfficer(question); ok {
		return table, nil
	}
	return a.askModel(ctx, question)
}

// lookupOfficer matches the question against officer names: an officer
// matches when every word of their name appears in the question. A
// four-digit year in the question filters by transaction year.
// Questions matching more than one officer are left to the model; the
// fast path only renders a single officer's table.
func (a *Assistant) lookupOfficer(question string) (string, bool) {
	q := strings.ToLower(question)

	year := 0
	if m := yearPattern.FindString(question); m != "" {
		year, _ = strconv.Atoi(m)
	}

	var matched []form4.TransactionRecord
	var officer string
	for _, r := range a.records {
		if !nameInQuestion(r.OfficerName, q) {
			continue
		}
		if officer != "" && r.OfficerName != officer {
			return "", false
		}
		officer = r.OfficerName
		if year != 0 && (r.TransactionDate == nil || r.TransactionDate.Year() != year) {
			continue
		}
		matched = append(matched, r)
	}
	if len(matched) == 0 {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Transactions for %s", officer)
	if year != 0 {
		fmt.Fprintf(&b, " in %d", year)
	}
	b.WriteString(":\n\n")
	b.WriteString("| Date | Code | Shares | Price | Security |\n")
	b.WriteString("|------|------|--------|-------|----------|\n")
	for _, r := range matched {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			formatDate(r.TransactionDate), r.TransactionCode,
			formatFloat(r.Shares), formatFloat(r.PricePerShare),
			formatString(r.SecurityTitle))
	}
	return b.String(), true
}

func (a *Assistant) askModel(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf("Dataset (officer, title, code, date, shares, price, security):\n%s\nQuestion: %s",
		a.serializeRecords(), question)

	raw, err := a.provider.GenerateResponse(ctx, prompt, systemPrompt, map[string]interface{}{"json": true})
	if err != nil {
		return "", fmt.Errorf("assistant query failed: %w", err)
	}

	var reply struct {
		Answer string `json:"answer"`
	}
	if _, err := utils.SmartParse(raw, &reply); err == nil && reply.Answer != "" {
		return utils.CleanMarkdown(reply.Answer), nil
	}
	// Model ignored the JSON instruction; salvage the raw text.
	salvaged := utils.CleanMarkdown(raw)
	if !utils.ValidateMarkdown(salvaged) {
		return "", fmt.Errorf("model returned an unusable reply")
	}
	return salvaged, nil
}

func (a *Assistant) serializeRecords() string {
	records := a.records
	if len(records) > maxContextRows {
		records = records[:maxContextRows]
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.OfficerName, r.OfficerTitle, r.TransactionCode,
			formatDate(r.TransactionDate), formatFloat(r.Shares),
			formatFloat(r.PricePerShare), formatString(r.SecurityTitle))
	}
	return b.String()
}

// nameInQuestion reports whether every word of the officer's name
// occurs in the lower-cased question.
func nameInQuestion(name, q string) bool {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !strings.Contains(q, p) {
			return false
		}
	}
	return true
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "?"
	}
	return t.Format("2006-01-02")
}

func formatFloat(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(s *string) string {
	if s == nil {
		return "?"
	}
	return *s
}
