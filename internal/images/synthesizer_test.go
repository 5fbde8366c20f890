package images

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeImageAPI struct {
	url     string
	err     error
	prompts []string
}

func (f *fakeImageAPI) GenerateImage(_ context.Context, _ string, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

var (
	testCategories = []string{"Cooking", "Gaming"}
	testRatio      = []int{60, 40}
	testKeywords   = map[string][]string{
		"Cooking": {"baking", "sourdough", "pastry"},
		"Gaming":  {"speedrun", "strategy", "retro"},
	}
)

func TestSynthesizeReturnsGeneratedURL(t *testing.T) {
	api := &fakeImageAPI{url: "https://images.example.com/generated/abc.png"}
	synthesizer, err := NewSynthesizer(SynthesizerConfig{API: api, Model: "test-model"})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	imageURL, err := synthesizer.Synthesize(context.Background(), testCategories, testRatio, testKeywords)
	if err != nil {
		t.Fatalf("unexpected synthesize error: %v", err)
	}
	if imageURL != api.url {
		t.Fatalf("unexpected image url %q", imageURL)
	}

	if len(api.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(api.prompts))
	}
	prompt := api.prompts[0]
	if !strings.Contains(prompt, "Cooking (60%)") {
		t.Fatalf("prompt missing category with ratio: %q", prompt)
	}
	if !strings.Contains(prompt, "speedrun") {
		t.Fatalf("prompt missing keyword: %q", prompt)
	}
}

func TestSynthesizeRejectsShapeMismatch(t *testing.T) {
	api := &fakeImageAPI{url: "https://images.example.com/x.png"}
	synthesizer, err := NewSynthesizer(SynthesizerConfig{API: api})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = synthesizer.Synthesize(context.Background(), testCategories, []int{100}, testKeywords)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}

	_, err = synthesizer.Synthesize(context.Background(), []string{"Cooking", "Unknown"}, testRatio, testKeywords)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch for unknown category, got %v", err)
	}

	if len(api.prompts) != 0 {
		t.Fatalf("expected no generation calls on invalid input, got %d", len(api.prompts))
	}
}

func TestSynthesizeRejectsInvalidURL(t *testing.T) {
	api := &fakeImageAPI{url: "not-a-url"}
	synthesizer, err := NewSynthesizer(SynthesizerConfig{API: api})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = synthesizer.Synthesize(context.Background(), testCategories, testRatio, testKeywords)
	if !errors.Is(err, ErrInvalidImageURL) {
		t.Fatalf("expected invalid url error, got %v", err)
	}
}

func TestSynthesizeWrapsGenerationFailure(t *testing.T) {
	api := &fakeImageAPI{err: errors.New("rate limited")}
	synthesizer, err := NewSynthesizer(SynthesizerConfig{API: api})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = synthesizer.Synthesize(context.Background(), testCategories, testRatio, testKeywords)
	if !errors.Is(err, ErrInvalidImageURL) {
		t.Fatalf("expected wrapped generation failure, got %v", err)
	}
}
