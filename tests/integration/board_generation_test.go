package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tasteboard/backend/internal/artifacts"
	"github.com/tasteboard/backend/internal/boards"
	"github.com/tasteboard/backend/internal/cache"
	"github.com/tasteboard/backend/internal/images"
	"github.com/tasteboard/backend/internal/llm"
	"github.com/tasteboard/backend/internal/youtube"
)

type scriptedVideoAPI struct {
	perChannel  map[string][]string
	channelErrs map[string]error
	records     map[string]youtube.VideoRecord
	searchCalls int
}

func (s *scriptedVideoAPI) SearchRecentVideoIDs(_ context.Context, channelID string) ([]string, error) {
	s.searchCalls++
	if err, ok := s.channelErrs[channelID]; ok {
		return nil, err
	}
	return s.perChannel[channelID], nil
}

func (s *scriptedVideoAPI) VideoMetadata(_ context.Context, videoIDs []string) ([]youtube.VideoRecord, error) {
	records := make([]youtube.VideoRecord, 0, len(videoIDs))
	for _, videoID := range videoIDs {
		if record, ok := s.records[videoID]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

type scriptedCompleter struct {
	response string
}

func (s *scriptedCompleter) Complete(_ context.Context, _ string, _ string, _ int) (string, error) {
	return s.response, nil
}

type scriptedImageAPI struct {
	url string
}

func (s *scriptedImageAPI) GenerateImage(_ context.Context, _ string, _ string) (string, error) {
	return s.url, nil
}

type memoryObjectStorage struct {
	objects map[string][]byte
}

func (m *memoryObjectStorage) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[path] = data
	return "https://storage.example.com/bucket/" + path, nil
}

func (m *memoryObjectStorage) Delete(_ context.Context, objectURL string) error {
	return nil
}

const classificationResponse = `{
  "category_ratio": [40, 30, 20, 10],
  "keywords": {
    "Cooking": ["baking", "sourdough", "pastry"],
    "Gaming": ["speedrun", "strategy", "retro"],
    "Travel": ["backpacking", "street food", "japan"],
    "Fitness": ["mobility", "kettlebell", "running"]
  }
}`

func TestBoardGenerationEndToEnd(t *testing.T) {
	ctx := context.Background()

	dsn := fmt.Sprintf("file:integration_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&boards.Board{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("generated image bytes")) //nolint:errcheck
	}))
	t.Cleanup(imageServer.Close)

	videoAPI := &scriptedVideoAPI{
		perChannel: map[string][]string{
			"chan-healthy": {"v1", "v2"},
		},
		channelErrs: map[string]error{
			"chan-broken": fmt.Errorf("channel unavailable"),
		},
		records: map[string]youtube.VideoRecord{
			"v1": {VideoID: "v1", LocalizedTitle: "Sourdough basics", Tags: []string{"baking"}},
			"v2": {VideoID: "v2", LocalizedTitle: "Speedrun world record", Tags: []string{"gaming"}},
		},
	}

	videoCache := youtube.NewVideoCache(cache.NewMemoryStore(), time.Hour)
	fetcher, err := youtube.NewFetcher(youtube.FetcherConfig{API: videoAPI, Cache: videoCache})
	if err != nil {
		t.Fatalf("failed to construct fetcher: %v", err)
	}

	categorizer, err := llm.NewCategorizer(llm.CategorizerConfig{
		Completer: &scriptedCompleter{response: classificationResponse},
	})
	if err != nil {
		t.Fatalf("failed to construct categorizer: %v", err)
	}

	synthesizer, err := images.NewSynthesizer(images.SynthesizerConfig{
		API: &scriptedImageAPI{url: imageServer.URL + "/generated.png"},
	})
	if err != nil {
		t.Fatalf("failed to construct synthesizer: %v", err)
	}

	storage := &memoryObjectStorage{}
	artifactStore, err := artifacts.NewStore(artifacts.StoreConfig{
		Storage:    storage,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct artifact store: %v", err)
	}

	boardService, err := boards.NewService(boards.ServiceConfig{
		Database:   db,
		IDProvider: boards.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to construct board service: %v", err)
	}

	orchestrator, err := boards.NewOrchestrator(boards.OrchestratorConfig{
		Boards:      boardService,
		Source:      fetcher,
		Index:       videoCache,
		Classifier:  categorizer,
		Synthesizer: synthesizer,
		Artifacts:   artifactStore,
	})
	if err != nil {
		t.Fatalf("failed to construct orchestrator: %v", err)
	}

	board, err := boardService.CreateDraft(ctx, 42, "Taste profile", "req-1")
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}

	err = orchestrator.Generate(ctx, board.ID, 42, []string{"chan-broken", "chan-healthy"})
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	stored, err := boardService.ByID(ctx, board.ID)
	if err != nil {
		t.Fatalf("failed to reload board: %v", err)
	}
	if !stored.Complete() {
		t.Fatalf("expected board to be complete")
	}

	categories, err := stored.Categories()
	if err != nil || len(categories) != 4 {
		t.Fatalf("unexpected categories %#v err %v", categories, err)
	}
	ratio, err := stored.CategoryRatio()
	if err != nil {
		t.Fatalf("unexpected ratio error: %v", err)
	}
	sum := 0
	for _, percentage := range ratio {
		sum += percentage
	}
	if sum != 100 {
		t.Fatalf("expected ratio sum 100, got %d", sum)
	}

	objectPath := fmt.Sprintf("boards/%d/cover.png", board.ID)
	if string(storage.objects[objectPath]) != "generated image bytes" {
		t.Fatalf("expected image bytes to be persisted durably")
	}

	// Redelivery of the same job must not regenerate anything.
	searchCallsBefore := videoAPI.searchCalls
	if err := orchestrator.Generate(ctx, board.ID, 42, []string{"chan-healthy"}); err != nil {
		t.Fatalf("redelivered generation failed: %v", err)
	}
	if videoAPI.searchCalls != searchCallsBefore {
		t.Fatalf("redelivered generation must not hit the origin")
	}

	// Keyword regeneration reuses the gathered video set.
	regenerated, err := llm.NewCategorizer(llm.CategorizerConfig{
		Completer: &scriptedCompleter{response: `{"keywords": ["fermentation", "knife skills", "plating"]}`},
	})
	if err != nil {
		t.Fatalf("failed to construct regenerating categorizer: %v", err)
	}
	regenOrchestrator, err := boards.NewOrchestrator(boards.OrchestratorConfig{
		Boards:      boardService,
		Source:      fetcher,
		Index:       videoCache,
		Classifier:  regenerated,
		Synthesizer: synthesizer,
		Artifacts:   artifactStore,
	})
	if err != nil {
		t.Fatalf("failed to construct orchestrator: %v", err)
	}

	keywords, err := regenOrchestrator.RegenerateKeywords(ctx, stored.ExternalID, 42, "Cooking")
	if err != nil {
		t.Fatalf("keyword regeneration failed: %v", err)
	}
	if len(keywords) != 3 || keywords[0] != "fermentation" {
		t.Fatalf("unexpected regenerated keywords %#v", keywords)
	}
}
