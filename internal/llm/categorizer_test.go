package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/tasteboard/backend/internal/youtube"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, prompt string, _ int) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const validClassificationResponse = `Here is the analysis you asked for:
{
  "category_ratio": [40, 30, 20, 10],
  "keywords": {
    "Cooking": ["baking", "sourdough", "pastry"],
    "Gaming": ["speedrun", "strategy", "retro"],
    "Travel": ["backpacking", "street food", "japan"],
    "Fitness": ["mobility", "kettlebell", "running"]
  }
}
Let me know if you need anything else.`

func sampleRecords() []youtube.VideoRecord {
	return []youtube.VideoRecord{
		{VideoID: "vid-1", LocalizedTitle: "Perfect sourdough at home", Tags: []string{"baking"}},
		{VideoID: "vid-2", LocalizedTitle: "Speedrunning classics", Tags: []string{"gaming"}},
	}
}

func TestCategorizeParsesProseWrappedResponse(t *testing.T) {
	completer := &fakeCompleter{response: validClassificationResponse}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer, Model: "test-model"})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	classification, err := categorizer.Categorize(context.Background(), sampleRecords())
	if err != nil {
		t.Fatalf("unexpected categorize error: %v", err)
	}

	wantCategories := []string{"Cooking", "Gaming", "Travel", "Fitness"}
	if len(classification.Categories) != len(wantCategories) {
		t.Fatalf("unexpected category count %d", len(classification.Categories))
	}
	for i, category := range wantCategories {
		if classification.Categories[i] != category {
			t.Fatalf("category %d: got %q want %q", i, classification.Categories[i], category)
		}
	}

	sum := 0
	for _, percentage := range classification.CategoryRatio {
		sum += percentage
	}
	if sum != 100 {
		t.Fatalf("expected ratio to sum to 100, got %d", sum)
	}
	if classification.CategoryRatio[0] != 40 {
		t.Fatalf("expected first ratio 40, got %d", classification.CategoryRatio[0])
	}

	keywords, ok := classification.Keywords["Gaming"]
	if !ok || len(keywords) != KeywordsPerCategory {
		t.Fatalf("unexpected gaming keywords %#v", keywords)
	}
}

func TestCategorizeRejectsWrongCategoryCount(t *testing.T) {
	completer := &fakeCompleter{response: `{
		"category_ratio": [50, 30, 20],
		"keywords": {
			"Cooking": ["a", "b", "c"],
			"Gaming": ["d", "e", "f"],
			"Travel": ["g", "h", "i"]
		}
	}`}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = categorizer.Categorize(context.Background(), sampleRecords())
	var categorizationErr *CategorizationError
	if !errors.As(err, &categorizationErr) {
		t.Fatalf("expected categorization error, got %v", err)
	}
	if categorizationErr.Reason != "wrong_ratio_length" {
		t.Fatalf("unexpected reason %q", categorizationErr.Reason)
	}
}

func TestCategorizeRejectsMissingKeys(t *testing.T) {
	completer := &fakeCompleter{response: `{"category_ratio": [40, 30, 20, 10]}`}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = categorizer.Categorize(context.Background(), sampleRecords())
	var categorizationErr *CategorizationError
	if !errors.As(err, &categorizationErr) {
		t.Fatalf("expected categorization error, got %v", err)
	}
	if categorizationErr.Reason != "missing_keys" {
		t.Fatalf("unexpected reason %q", categorizationErr.Reason)
	}
}

func TestCategorizeRejectsNonJSONResponse(t *testing.T) {
	completer := &fakeCompleter{response: "I could not produce a classification."}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = categorizer.Categorize(context.Background(), sampleRecords())
	var categorizationErr *CategorizationError
	if !errors.As(err, &categorizationErr) {
		t.Fatalf("expected categorization error, got %v", err)
	}
	if categorizationErr.Reason != "no_json_object" {
		t.Fatalf("unexpected reason %q", categorizationErr.Reason)
	}
}

func TestRegenerateKeywordsReturnsFreshSet(t *testing.T) {
	completer := &fakeCompleter{response: `{"keywords": ["fermentation", "knife skills", "plating"]}`}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	keywords, err := categorizer.RegenerateKeywords(context.Background(), "Cooking",
		[]string{"baking", "sourdough", "pastry"}, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected regenerate error: %v", err)
	}
	if len(keywords) != KeywordsPerCategory {
		t.Fatalf("unexpected keyword count %d", len(keywords))
	}
	if keywords[0] != "fermentation" {
		t.Fatalf("unexpected first keyword %q", keywords[0])
	}
}

func TestRegenerateKeywordsRejectsRepeats(t *testing.T) {
	completer := &fakeCompleter{response: `{"keywords": ["Baking", "knife skills", "plating"]}`}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = categorizer.RegenerateKeywords(context.Background(), "Cooking",
		[]string{"baking", "sourdough", "pastry"}, sampleRecords())
	var categorizationErr *CategorizationError
	if !errors.As(err, &categorizationErr) {
		t.Fatalf("expected categorization error, got %v", err)
	}
	if categorizationErr.Reason != "duplicate_keyword" {
		t.Fatalf("unexpected reason %q", categorizationErr.Reason)
	}
}

func TestComparatorParsesVerdict(t *testing.T) {
	completer := &fakeCompleter{response: `{"match_keywords": ["baking", "retro"], "total_match_rate": 41.5}`}
	comparator, err := NewComparator(ComparatorConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	comparison, err := comparator.Compare(context.Background(),
		map[string][]string{"Cooking": {"baking"}},
		map[string][]string{"Gaming": {"retro"}})
	if err != nil {
		t.Fatalf("unexpected compare error: %v", err)
	}
	if len(comparison.MatchKeywords) != 2 {
		t.Fatalf("unexpected match keyword count %d", len(comparison.MatchKeywords))
	}
	if comparison.TotalMatchRate != 41.5 {
		t.Fatalf("unexpected match rate %v", comparison.TotalMatchRate)
	}
}

func TestCategorizeWrapsCompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream unavailable")}
	categorizer, err := NewCategorizer(CategorizerConfig{Completer: completer})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = categorizer.Categorize(context.Background(), sampleRecords())
	var categorizationErr *CategorizationError
	if !errors.As(err, &categorizationErr) {
		t.Fatalf("expected categorization error, got %v", err)
	}
	if categorizationErr.Reason != "completion_failed" {
		t.Fatalf("unexpected reason %q", categorizationErr.Reason)
	}
}
