package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tasteboard/backend/internal/youtube"
)

const (
	// CategoryCount is the number of interest categories a board carries.
	CategoryCount = 4
	// KeywordsPerCategory is the number of keywords derived per category.
	KeywordsPerCategory = 3
	// maxCategorizerRecords bounds prompt size and cost.
	maxCategorizerRecords = 50

	categorizeMaxTokens = 500
	regenerateMaxTokens = 200
)

var errMissingCompleter = errors.New("llm: completer is required")

// CategorizationError reports a malformed or mis-shaped generation response.
// The raw response is retained for diagnosis.
type CategorizationError struct {
	Reason string
	Raw    string
	Cause  error
}

func (e *CategorizationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm: categorization failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("llm: categorization failed (%s)", e.Reason)
}

func (e *CategorizationError) Unwrap() error {
	return e.Cause
}

// Classification is the validated output of one categorization call.
// Categories preserves the model's output order so ratio positions stay
// aligned with category names.
type Classification struct {
	Categories    []string
	CategoryRatio []int
	Keywords      map[string][]string
}

// CategorizerConfig describes Categorizer dependencies.
type CategorizerConfig struct {
	Completer Completer
	Model     string
}

// Categorizer derives four thematic categories, three keywords each, and a
// percentage distribution from a batch of video records. It owns no state
// and performs no cache or database writes.
type Categorizer struct {
	completer Completer
	model     string
}

// NewCategorizer constructs a Categorizer.
func NewCategorizer(cfg CategorizerConfig) (*Categorizer, error) {
	if cfg.Completer == nil {
		return nil, errMissingCompleter
	}
	return &Categorizer{completer: cfg.Completer, model: cfg.Model}, nil
}

// Categorize runs one completion over at most maxCategorizerRecords records
// and validates the result shape. Failures are never retried here; retry
// policy belongs to the orchestrator.
func (c *Categorizer) Categorize(ctx context.Context, records []youtube.VideoRecord) (Classification, error) {
	if len(records) > maxCategorizerRecords {
		records = records[:maxCategorizerRecords]
	}

	dataset, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Classification{}, err
	}

	response, err := c.completer.Complete(ctx, c.model, categorizePrompt(string(dataset)), categorizeMaxTokens)
	if err != nil {
		return Classification{}, &CategorizationError{Reason: "completion_failed", Cause: err}
	}

	return parseClassification(response)
}

// RegenerateKeywords produces three fresh keywords for a single category,
// excluding the keywords the board already has.
func (c *Categorizer) RegenerateKeywords(ctx context.Context, category string, current []string, records []youtube.VideoRecord) ([]string, error) {
	if len(records) > maxCategorizerRecords {
		records = records[:maxCategorizerRecords]
	}

	dataset, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}

	response, err := c.completer.Complete(ctx, c.model, regeneratePrompt(category, current, string(dataset)), regenerateMaxTokens)
	if err != nil {
		return nil, &CategorizationError{Reason: "completion_failed", Cause: err}
	}

	objectJSON, err := extractJSONObject(response)
	if err != nil {
		return nil, &CategorizationError{Reason: "no_json_object", Raw: response, Cause: err}
	}

	var parsed struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(objectJSON), &parsed); err != nil {
		return nil, &CategorizationError{Reason: "parse_failed", Raw: response, Cause: err}
	}
	if len(parsed.Keywords) != KeywordsPerCategory {
		return nil, &CategorizationError{Reason: "wrong_keyword_count", Raw: response}
	}

	previous := make(map[string]struct{}, len(current))
	for _, keyword := range current {
		previous[strings.ToLower(strings.TrimSpace(keyword))] = struct{}{}
	}
	for _, keyword := range parsed.Keywords {
		if _, dup := previous[strings.ToLower(strings.TrimSpace(keyword))]; dup {
			return nil, &CategorizationError{Reason: "duplicate_keyword", Raw: response}
		}
	}

	return parsed.Keywords, nil
}

func parseClassification(response string) (Classification, error) {
	objectJSON, err := extractJSONObject(response)
	if err != nil {
		return Classification{}, &CategorizationError{Reason: "no_json_object", Raw: response, Cause: err}
	}

	var parsed struct {
		CategoryRatio *[]int              `json:"category_ratio"`
		Keywords      map[string][]string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(objectJSON), &parsed); err != nil {
		return Classification{}, &CategorizationError{Reason: "parse_failed", Raw: response, Cause: err}
	}
	if parsed.CategoryRatio == nil || parsed.Keywords == nil {
		return Classification{}, &CategorizationError{Reason: "missing_keys", Raw: response}
	}
	if len(*parsed.CategoryRatio) != CategoryCount {
		return Classification{}, &CategorizationError{Reason: "wrong_ratio_length", Raw: response}
	}
	if len(parsed.Keywords) != CategoryCount {
		return Classification{}, &CategorizationError{Reason: "wrong_category_count", Raw: response}
	}

	// Recover category order from the keywords object so ratios can be
	// paired with category names downstream.
	var envelope struct {
		Keywords json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(objectJSON), &envelope); err != nil {
		return Classification{}, &CategorizationError{Reason: "parse_failed", Raw: response, Cause: err}
	}
	categories, err := orderedObjectKeys(envelope.Keywords)
	if err != nil {
		return Classification{}, &CategorizationError{Reason: "parse_failed", Raw: response, Cause: err}
	}

	return Classification{
		Categories:    categories,
		CategoryRatio: *parsed.CategoryRatio,
		Keywords:      parsed.Keywords,
	}, nil
}
