package boards

import (
	"encoding/json"
	"time"
)

// Board is the persisted unit of value delivered to the user: four inferred
// interest categories with keywords, a percentage distribution, and a
// durably stored generated image.
//
// A row is created in a pending shape (empty image, ratio and keywords) so an
// ID exists for cache keys and client polling while the generation pipeline
// runs out-of-band. Finalization populates the generation fields in a single
// update; a board whose ImageURL is set is complete.
type Board struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID        string    `gorm:"column:external_id;size:64;uniqueIndex;not null"`
	OwnerID           int64     `gorm:"column:owner_id;not null;uniqueIndex:idx_boards_owner_request,priority:1"`
	RequestID         string    `gorm:"column:request_id;size:190;not null;default:'';uniqueIndex:idx_boards_owner_request,priority:2"`
	Name              string    `gorm:"column:name;size:190;not null;default:''"`
	ImageURL          string    `gorm:"column:image_url;size:512;not null;default:''"`
	CategoriesJSON    string    `gorm:"column:categories_json;type:text;not null;default:''"`
	CategoryRatioJSON string    `gorm:"column:category_ratio_json;type:text;not null;default:''"`
	KeywordsJSON      string    `gorm:"column:keywords_json;type:text;not null;default:''"`
	VideoIDsJSON      string    `gorm:"column:video_ids_json;type:text;not null;default:''"`
	Version           int64     `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Board) TableName() string {
	return "boards"
}

// Complete reports whether the generation pipeline has finalized this board.
// A non-empty image URL implies ratio and keywords are populated too.
func (b Board) Complete() bool {
	return b.ImageURL != ""
}

// Categories returns the category names in ratio order.
func (b Board) Categories() ([]string, error) {
	return decodeStringList(b.CategoriesJSON)
}

// CategoryRatio returns the percentage distribution across categories.
func (b Board) CategoryRatio() ([]int, error) {
	if b.CategoryRatioJSON == "" {
		return nil, nil
	}
	var ratio []int
	if err := json.Unmarshal([]byte(b.CategoryRatioJSON), &ratio); err != nil {
		return nil, err
	}
	return ratio, nil
}

// Keywords returns the per-category keyword lists.
func (b Board) Keywords() (map[string][]string, error) {
	if b.KeywordsJSON == "" {
		return nil, nil
	}
	var keywords map[string][]string
	if err := json.Unmarshal([]byte(b.KeywordsJSON), &keywords); err != nil {
		return nil, err
	}
	return keywords, nil
}

// VideoIDs returns the durable copy of the video-ID set that contributed to
// this board, recorded at finalize time for cache-independent regeneration.
func (b Board) VideoIDs() ([]string, error) {
	return decodeStringList(b.VideoIDsJSON)
}

func decodeStringList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
