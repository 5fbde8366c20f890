package boards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("boards: database handle is required")
	errMissingIDProvider = errors.New("boards: id provider is required")

	// ErrInvalidClassification indicates finalize input violating the board
	// shape invariants; upstream validation should make this unreachable.
	ErrInvalidClassification = errors.New("boards: invalid classification shape")
)

// IDProvider issues opaque, unguessable identifiers for sharing.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the board service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns Board row lifecycle: pending creation, lookup, finalization
// and the per-field regeneration updates.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the board service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, logger: logger}, nil
}

// CreateDraft inserts a pending board row and returns it. When the caller
// supplies a request ID and a board for the same (owner, request) pair
// already exists, that board is returned instead of inserting a duplicate;
// this keeps creation safe under at-least-once dispatch and client retries.
// The unique (owner_id, request_id) index closes the window between the
// lookup and the insert: of two concurrent identical creates exactly one row
// lands, and the loser re-reads the winner. Creates without a request ID use
// the board's external ID as their request key so they never collide.
func (s *Service) CreateDraft(ctx context.Context, ownerID int64, name, requestID string) (Board, error) {
	if requestID != "" {
		existing, found, err := s.draftByRequest(ctx, ownerID, requestID)
		if err != nil {
			return Board{}, err
		}
		if found {
			return existing, nil
		}
	}

	externalID, err := s.idProvider.NewID()
	if err != nil {
		return Board{}, err
	}

	storedRequestID := requestID
	if storedRequestID == "" {
		storedRequestID = externalID
	}

	board := Board{
		ExternalID: externalID,
		OwnerID:    ownerID,
		RequestID:  storedRequestID,
		Name:       name,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&board).Error; err != nil {
		if requestID != "" {
			existing, found, lookupErr := s.draftByRequest(ctx, ownerID, requestID)
			if lookupErr == nil && found {
				s.logger.Info("duplicate board create resolved to existing row",
					zap.Int64("owner_id", ownerID),
					zap.Int64("board_id", existing.ID))
				return existing, nil
			}
		}
		return Board{}, err
	}
	return board, nil
}

func (s *Service) draftByRequest(ctx context.Context, ownerID int64, requestID string) (Board, bool, error) {
	var existing Board
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND request_id = ?", ownerID, requestID).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, false, nil
	}
	if err != nil {
		return Board{}, false, err
	}
	return existing, true, nil
}

// ByID returns the board with the given durable identity.
func (s *Service) ByID(ctx context.Context, boardID int64) (Board, error) {
	var board Board
	err := s.db.WithContext(ctx).Where("id = ?", boardID).Take(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, ErrNotFound
	}
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

// ByExternalID returns the board behind a user-facing identifier.
func (s *Service) ByExternalID(ctx context.Context, externalID string) (Board, error) {
	var board Board
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, ErrNotFound
	}
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

// ListByOwner returns all boards owned by a user, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]Board, error) {
	var owned []Board
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&owned).Error; err != nil {
		return nil, err
	}
	return owned, nil
}

// FinalizeRequest carries the generation output written onto a board.
type FinalizeRequest struct {
	BoardID       int64
	Name          string
	Categories    []string
	CategoryRatio []int
	Keywords      map[string][]string
	ImageURL      string
	VideoIDs      []string
}

// Finalize writes every generation field in a single update. It only touches
// a still-pending row, so a redelivered generation job for an already
// completed board is a no-op rather than an overwrite.
func (s *Service) Finalize(ctx context.Context, request FinalizeRequest) error {
	if err := validateClassificationShape(request.Categories, request.CategoryRatio, request.Keywords); err != nil {
		return err
	}
	if request.ImageURL == "" {
		return fmt.Errorf("%w: empty image url", ErrInvalidClassification)
	}

	categoriesJSON, err := json.Marshal(request.Categories)
	if err != nil {
		return err
	}
	ratioJSON, err := json.Marshal(request.CategoryRatio)
	if err != nil {
		return err
	}
	keywordsJSON, err := json.Marshal(request.Keywords)
	if err != nil {
		return err
	}
	videoIDsJSON, err := json.Marshal(request.VideoIDs)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"categories_json":     string(categoriesJSON),
		"category_ratio_json": string(ratioJSON),
		"keywords_json":       string(keywordsJSON),
		"video_ids_json":      string(videoIDsJSON),
		"image_url":           request.ImageURL,
		"version":             gorm.Expr("version + 1"),
	}
	if request.Name != "" {
		updates["name"] = request.Name
	}

	result := s.db.WithContext(ctx).Model(&Board{}).
		Where("id = ? AND image_url = ''", request.BoardID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		board, err := s.ByID(ctx, request.BoardID)
		if err != nil {
			return err
		}
		if board.Complete() {
			s.logger.Info("finalize skipped, board already complete",
				zap.Int64("board_id", request.BoardID))
			return nil
		}
		return ErrVersionConflict
	}
	return nil
}

// UpdateCategoryKeywords replaces one category's keyword list, leaving every
// other category and the ratio untouched. The version check rejects a
// concurrent writer's interleaved update.
func (s *Service) UpdateCategoryKeywords(ctx context.Context, boardID int64, category string, keywords []string, expectedVersion int64) error {
	board, err := s.ByID(ctx, boardID)
	if err != nil {
		return err
	}

	current, err := board.Keywords()
	if err != nil {
		return err
	}
	if _, ok := current[category]; !ok {
		return ErrCategoryNotFound
	}
	current[category] = keywords

	keywordsJSON, err := json.Marshal(current)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&Board{}).
		Where("id = ? AND version = ?", boardID, expectedVersion).
		Updates(map[string]interface{}{
			"keywords_json": string(keywordsJSON),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// UpdateImage overwrites the board's durable image URL and returns the
// previous one so the caller can reclaim the old object. The version check
// rejects a concurrent writer, so two interleaved regenerations cannot both
// claim the same previous object.
func (s *Service) UpdateImage(ctx context.Context, boardID int64, imageURL string, expectedVersion int64) (string, error) {
	board, err := s.ByID(ctx, boardID)
	if err != nil {
		return "", err
	}
	if board.Version != expectedVersion {
		return "", ErrVersionConflict
	}

	result := s.db.WithContext(ctx).Model(&Board{}).
		Where("id = ? AND version = ?", boardID, expectedVersion).
		Updates(map[string]interface{}{
			"image_url": imageURL,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrVersionConflict
	}
	return board.ImageURL, nil
}

func validateClassificationShape(categories []string, ratio []int, keywords map[string][]string) error {
	if len(categories) != len(ratio) || len(keywords) != len(ratio) {
		return fmt.Errorf("%w: category/ratio/keyword counts disagree", ErrInvalidClassification)
	}
	sum := 0
	for _, percentage := range ratio {
		sum += percentage
	}
	if sum != 100 {
		return fmt.Errorf("%w: ratio sums to %d", ErrInvalidClassification, sum)
	}
	for _, category := range categories {
		if _, ok := keywords[category]; !ok {
			return fmt.Errorf("%w: missing keywords for %q", ErrInvalidClassification, category)
		}
	}
	return nil
}
