// Package utils handles the messy text LLMs return: JSON that is
// almost valid and Markdown wrapped in conversational filler.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

// SmartParse extracts structured data from model output, trying
// strategies from strictest to most lenient: standard JSON, repaired
// JSON (unquoted keys, trailing commas, markdown fences), then Hjson.
// Returns the normalized JSON that finally parsed into schema.
func SmartParse(input string, schema interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	var loose interface{}
	if err := hjson.Unmarshal([]byte(input), &loose); err == nil {
		if normalized, err := json.Marshal(loose); err == nil {
			if err := json.Unmarshal(normalized, schema); err == nil {
				return string(normalized), nil
			}
		}
	}

	return "", fmt.Errorf("no parsing strategy produced valid JSON for the model output")
}

// CleanMarkdown strips an outer code fence and surrounding whitespace
// so the answer renders as plain Markdown.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	for _, fence := range []string{"```markdown", "```"} {
		if strings.HasPrefix(cleaned, fence) && strings.HasSuffix(cleaned, "```") {
			cleaned = strings.TrimPrefix(cleaned, fence)
			cleaned = strings.TrimSuffix(cleaned, "```")
			cleaned = strings.TrimSpace(cleaned)
			break
		}
	}
	return cleaned
}

// ValidateMarkdown reports whether the input parses as Markdown.
// Goldmark is permissive, so this only catches pathological output.
func ValidateMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	return parser.Parse(text.NewReader([]byte(input))) != nil
}
