package images

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	errMissingImageAPI = errors.New("images: image api is required")

	// ErrShapeMismatch indicates the ratio and keyword inputs disagree; this
	// is a programming-error signal, not an external failure.
	ErrShapeMismatch = errors.New("images: category ratio and keywords length mismatch")
	// ErrInvalidImageURL indicates the generation API returned a missing or
	// unusable URL.
	ErrInvalidImageURL = errors.New("images: generation returned an invalid url")
)

// ImageAPI generates one image for a prompt and returns its ephemeral,
// platform-hosted URL.
type ImageAPI interface {
	GenerateImage(ctx context.Context, model, prompt string) (string, error)
}

// SynthesizerConfig describes Synthesizer dependencies.
type SynthesizerConfig struct {
	API   ImageAPI
	Model string
}

// Synthesizer turns a board's categories, ratios and keywords into a single
// illustrative image. The returned URL expires and must be copied to durable
// storage before being relied upon.
type Synthesizer struct {
	api   ImageAPI
	model string
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) (*Synthesizer, error) {
	if cfg.API == nil {
		return nil, errMissingImageAPI
	}
	return &Synthesizer{api: cfg.API, model: cfg.Model}, nil
}

// Synthesize requests one image for the given classification. Categories
// carries the category names in ratio order.
func (s *Synthesizer) Synthesize(ctx context.Context, categories []string, categoryRatio []int, keywords map[string][]string) (string, error) {
	if len(categoryRatio) != len(categories) || len(categoryRatio) != len(keywords) {
		return "", ErrShapeMismatch
	}
	for _, category := range categories {
		if _, ok := keywords[category]; !ok {
			return "", ErrShapeMismatch
		}
	}

	imageURL, err := s.api.GenerateImage(ctx, s.model, buildPrompt(categories, categoryRatio, keywords))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidImageURL
	}
	return imageURL, nil
}

func buildPrompt(categories []string, categoryRatio []int, keywords map[string][]string) string {
	parts := make([]string, 0, len(categories))
	for i, category := range categories {
		parts = append(parts, fmt.Sprintf("%s (%d%%): %s", category, categoryRatio[i], strings.Join(keywords[category], ", ")))
	}

	var b strings.Builder
	b.WriteString("You are a highly skilled illustrator drawing with Microsoft Paint. ")
	b.WriteString("Create pixel-style images based on the provided categories and keywords. ")
	b.WriteString("The images should look crude, with very low detail and rough lines. ")
	b.WriteString("Use dark colors to create a dull tone. Place all the drawings on a single page freely.\n\n")
	b.WriteString("Draw pixelated illustrations based on the following themes:\n")
	b.WriteString(strings.Join(parts, "; "))
	return b.String()
}
