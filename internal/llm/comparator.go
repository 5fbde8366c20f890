package llm

import (
	"context"
	"encoding/json"
)

const compareMaxTokens = 300

// Comparison is the similarity verdict for two boards' keyword sets.
type Comparison struct {
	MatchKeywords  []string `json:"match_keywords"`
	TotalMatchRate float64  `json:"total_match_rate"`
}

// ComparatorConfig describes Comparator dependencies.
type ComparatorConfig struct {
	Completer Completer
	Model     string
}

// Comparator scores the similarity between two keyword sets.
type Comparator struct {
	completer Completer
	model     string
}

// NewComparator constructs a Comparator.
func NewComparator(cfg ComparatorConfig) (*Comparator, error) {
	if cfg.Completer == nil {
		return nil, errMissingCompleter
	}
	return &Comparator{completer: cfg.Completer, model: cfg.Model}, nil
}

// Compare runs one completion over both keyword sets and parses the verdict.
func (c *Comparator) Compare(ctx context.Context, first, second map[string][]string) (Comparison, error) {
	firstJSON, err := json.Marshal(first)
	if err != nil {
		return Comparison{}, err
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		return Comparison{}, err
	}

	response, err := c.completer.Complete(ctx, c.model, comparePrompt(string(firstJSON), string(secondJSON)), compareMaxTokens)
	if err != nil {
		return Comparison{}, &CategorizationError{Reason: "completion_failed", Cause: err}
	}

	objectJSON, err := extractJSONObject(response)
	if err != nil {
		return Comparison{}, &CategorizationError{Reason: "no_json_object", Raw: response, Cause: err}
	}

	var comparison Comparison
	if err := json.Unmarshal([]byte(objectJSON), &comparison); err != nil {
		return Comparison{}, &CategorizationError{Reason: "parse_failed", Raw: response, Cause: err}
	}
	return comparison, nil
}
