package boards

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bpradana/weave"
	"github.com/tasteboard/backend/internal/llm"
	"github.com/tasteboard/backend/internal/youtube"
)

// VideoSource supplies the per-channel video records a board is built from.
type VideoSource interface {
	Fetch(ctx context.Context, boardID int64, channelID string) ([]youtube.VideoRecord, error)
	Records(ctx context.Context, videoIDs []string) ([]youtube.VideoRecord, error)
}

// VideoIndex reads back the set of video IDs already gathered for a board.
type VideoIndex interface {
	BoardVideos(ctx context.Context, boardID int64) ([]string, bool, error)
}

// Classifier turns video records into named categories with ratios and keywords.
type Classifier interface {
	Categorize(ctx context.Context, records []youtube.VideoRecord) (llm.Classification, error)
	RegenerateKeywords(ctx context.Context, category string, current []string, records []youtube.VideoRecord) ([]string, error)
}

// ImageSynthesizer renders a board's classification into a short-lived image URL.
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, categories []string, categoryRatio []int, keywords map[string][]string) (string, error)
}

// ArtifactStore copies a short-lived image URL into durable storage.
type ArtifactStore interface {
	Persist(ctx context.Context, sourceURL, destinationPath string) (string, error)
	Delete(ctx context.Context, durableURL string)
}

// OrchestratorConfig describes the dependencies of the generation pipeline.
type OrchestratorConfig struct {
	Boards      *Service
	Source      VideoSource
	Index       VideoIndex
	Classifier  Classifier
	Synthesizer ImageSynthesizer
	Artifacts   ArtifactStore
	IDProvider  IDProvider
	Logger      *zap.Logger
}

// Orchestrator runs the board generation pipeline and the follow-up
// regeneration operations.
type Orchestrator struct {
	boards      *Service
	source      VideoSource
	index       VideoIndex
	classifier  Classifier
	synthesizer ImageSynthesizer
	artifacts   ArtifactStore
	idProvider  IDProvider
	logger      *zap.Logger
}

// NewOrchestrator constructs the pipeline after validating its dependencies.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Boards == nil {
		return nil, errors.New("boards: board service is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("boards: video source is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("boards: video index is required")
	}
	if cfg.Classifier == nil {
		return nil, errors.New("boards: classifier is required")
	}
	if cfg.Synthesizer == nil {
		return nil, errors.New("boards: synthesizer is required")
	}
	if cfg.Artifacts == nil {
		return nil, errors.New("boards: artifact store is required")
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		boards:      cfg.Boards,
		source:      cfg.Source,
		index:       cfg.Index,
		classifier:  cfg.Classifier,
		synthesizer: cfg.Synthesizer,
		artifacts:   cfg.Artifacts,
		idProvider:  idProvider,
		logger:      logger,
	}, nil
}

type generationOutput struct {
	classification llm.Classification
	imageURL       string
	videoIDs       []string
}

// Generate runs the full pipeline for a pending board: fan out one fetch per
// channel, aggregate the surviving records, classify, render, persist the
// image, then finalize the row in one write. A redelivered job for an already
// completed board returns without touching anything.
func (o *Orchestrator) Generate(ctx context.Context, boardID, ownerID int64, channelIDs []string) error {
	board, err := o.boards.ByID(ctx, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID != ownerID {
		return ErrForbidden
	}
	if board.Complete() {
		o.logger.Info("generation skipped, board already complete",
			zap.Int64("board_id", boardID))
		return nil
	}
	if len(channelIDs) == 0 {
		return ErrNoData
	}

	output, err := o.runPipeline(ctx, boardID, channelIDs)
	if err != nil {
		return err
	}

	return o.boards.Finalize(ctx, FinalizeRequest{
		BoardID:       boardID,
		Categories:    output.classification.Categories,
		CategoryRatio: output.classification.CategoryRatio,
		Keywords:      output.classification.Keywords,
		ImageURL:      output.imageURL,
		VideoIDs:      output.videoIDs,
	})
}

func (o *Orchestrator) runPipeline(ctx context.Context, boardID int64, channelIDs []string) (generationOutput, error) {
	graph := weave.NewGraph()

	fetches := make([]*weave.Handle[[]youtube.VideoRecord], 0, len(channelIDs))
	fetchRefs := make([]weave.TaskReference, 0, len(channelIDs))
	for _, channelID := range channelIDs {
		channelID := channelID
		handle, err := weave.AddTask(graph, "fetch-"+channelID, func(ctx context.Context, deps weave.DependencyResolver) ([]youtube.VideoRecord, error) {
			records, fetchErr := o.source.Fetch(ctx, boardID, channelID)
			if fetchErr != nil {
				// One unreachable channel must not sink the whole board.
				o.logger.Warn("channel fetch failed",
					zap.Int64("board_id", boardID),
					zap.String("channel_id", channelID),
					zap.Error(fetchErr))
				return nil, nil
			}
			return records, nil
		})
		if err != nil {
			return generationOutput{}, err
		}
		fetches = append(fetches, handle)
		fetchRefs = append(fetchRefs, handle)
	}

	aggregate, err := weave.AddTask(graph, "aggregate", func(ctx context.Context, deps weave.DependencyResolver) ([]youtube.VideoRecord, error) {
		combined := make([]youtube.VideoRecord, 0)
		seen := make(map[string]struct{})
		for _, fetch := range fetches {
			records, valueErr := fetch.Value(deps)
			if valueErr != nil {
				return nil, valueErr
			}
			for _, record := range records {
				if _, ok := seen[record.VideoID]; ok {
					continue
				}
				seen[record.VideoID] = struct{}{}
				combined = append(combined, record)
			}
		}
		if len(combined) == 0 {
			return nil, ErrNoData
		}
		return combined, nil
	}, weave.DependsOn(fetchRefs...))
	if err != nil {
		return generationOutput{}, err
	}

	classify, err := weave.AddTask(graph, "classify", func(ctx context.Context, deps weave.DependencyResolver) (llm.Classification, error) {
		records, valueErr := aggregate.Value(deps)
		if valueErr != nil {
			return llm.Classification{}, valueErr
		}
		return o.classifier.Categorize(ctx, records)
	}, weave.DependsOn(aggregate))
	if err != nil {
		return generationOutput{}, err
	}

	render, err := weave.AddTask(graph, "render", func(ctx context.Context, deps weave.DependencyResolver) (string, error) {
		classification, valueErr := classify.Value(deps)
		if valueErr != nil {
			return "", valueErr
		}
		return o.synthesizer.Synthesize(ctx, classification.Categories, classification.CategoryRatio, classification.Keywords)
	}, weave.DependsOn(classify))
	if err != nil {
		return generationOutput{}, err
	}

	persist, err := weave.AddTask(graph, "persist", func(ctx context.Context, deps weave.DependencyResolver) (string, error) {
		sourceURL, valueErr := render.Value(deps)
		if valueErr != nil {
			return "", valueErr
		}
		return o.artifacts.Persist(ctx, sourceURL, coverObjectPath(boardID, "cover.png"))
	}, weave.DependsOn(render))
	if err != nil {
		return generationOutput{}, err
	}

	results, _, err := graph.Run(ctx)
	if err != nil {
		return generationOutput{}, err
	}

	classification, err := classify.Value(results)
	if err != nil {
		return generationOutput{}, err
	}
	durableURL, err := persist.Value(results)
	if err != nil {
		return generationOutput{}, err
	}
	records, err := aggregate.Value(results)
	if err != nil {
		return generationOutput{}, err
	}

	videoIDs := make([]string, 0, len(records))
	for _, record := range records {
		videoIDs = append(videoIDs, record.VideoID)
	}
	return generationOutput{
		classification: classification,
		imageURL:       durableURL,
		videoIDs:       videoIDs,
	}, nil
}

// RegenerateKeywords replaces one category's keyword list on a completed
// board, re-running the classifier over the board's original video set. The
// videos come from the cache when the index is still warm and from the
// board row otherwise.
func (o *Orchestrator) RegenerateKeywords(ctx context.Context, externalID string, ownerID int64, category string) ([]string, error) {
	board, err := o.boards.ByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if !board.Complete() {
		return nil, ErrNotGenerated
	}

	keywords, err := board.Keywords()
	if err != nil {
		return nil, err
	}
	current, ok := keywords[category]
	if !ok {
		return nil, ErrCategoryNotFound
	}

	videoIDs, err := o.boardVideoIDs(ctx, board)
	if err != nil {
		return nil, err
	}
	if len(videoIDs) == 0 {
		return nil, ErrNoData
	}

	records, err := o.source.Records(ctx, videoIDs)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	replacement, err := o.classifier.RegenerateKeywords(ctx, category, current, records)
	if err != nil {
		return nil, err
	}

	if err := o.boards.UpdateCategoryKeywords(ctx, board.ID, category, replacement, board.Version); err != nil {
		return nil, err
	}
	return replacement, nil
}

// RegenerateImage renders a fresh cover from the board's existing
// classification. The new object is persisted under a fresh path before the
// row is updated, and the old object is deleted only after the row points at
// the new one, so a crash never leaves the board referencing a missing image.
func (o *Orchestrator) RegenerateImage(ctx context.Context, externalID string, ownerID int64) (string, error) {
	board, err := o.boards.ByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}
	if board.OwnerID != ownerID {
		return "", ErrForbidden
	}
	if !board.Complete() {
		return "", ErrNotGenerated
	}

	categories, err := board.Categories()
	if err != nil {
		return "", err
	}
	ratio, err := board.CategoryRatio()
	if err != nil {
		return "", err
	}
	keywords, err := board.Keywords()
	if err != nil {
		return "", err
	}

	sourceURL, err := o.synthesizer.Synthesize(ctx, categories, ratio, keywords)
	if err != nil {
		return "", err
	}

	suffix, err := o.idProvider.NewID()
	if err != nil {
		return "", err
	}
	durableURL, err := o.artifacts.Persist(ctx, sourceURL, coverObjectPath(board.ID, "cover-"+suffix+".png"))
	if err != nil {
		return "", err
	}

	previousURL, err := o.boards.UpdateImage(ctx, board.ID, durableURL, board.Version)
	if err != nil {
		o.artifacts.Delete(ctx, durableURL)
		return "", err
	}
	if previousURL != "" && previousURL != durableURL {
		o.artifacts.Delete(ctx, previousURL)
	}
	return durableURL, nil
}

func (o *Orchestrator) boardVideoIDs(ctx context.Context, board Board) ([]string, error) {
	videoIDs, ok, err := o.index.BoardVideos(ctx, board.ID)
	if err == nil && ok && len(videoIDs) > 0 {
		return videoIDs, nil
	}
	if err != nil {
		o.logger.Warn("board video index read failed, falling back to stored set",
			zap.Int64("board_id", board.ID),
			zap.Error(err))
	}
	return board.VideoIDs()
}

func coverObjectPath(boardID int64, name string) string {
	return fmt.Sprintf("boards/%d/%s", boardID, name)
}
