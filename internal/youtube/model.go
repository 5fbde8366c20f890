package youtube

const (
	// maxTagCount bounds how many platform tags are kept per video.
	maxTagCount = 6
	// maxDescriptionLength bounds the localized description, in runes.
	maxDescriptionLength = 300
	// metadataBatchSize is the platform limit on IDs per metadata call.
	metadataBatchSize = 50
)

// VideoRecord is one normalized video's analyzable content. Records are
// created from platform responses, cached verbatim, and never mutated; a
// later fetch for the same ID supersedes the cached record.
type VideoRecord struct {
	VideoID              string   `json:"videoId"`
	Tags                 []string `json:"tags"`
	CategoryID           string   `json:"categoryId"`
	LocalizedTitle       string   `json:"localizedTitle"`
	LocalizedDescription string   `json:"localizedDescription"`
}

// Subscription describes one channel the authenticated user follows.
type Subscription struct {
	ChannelID    string `json:"channel_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func truncateTags(tags []string) []string {
	if len(tags) <= maxTagCount {
		return tags
	}
	return tags[:maxTagCount]
}

func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= maxDescriptionLength {
		return description
	}
	return string(runes[:maxDescriptionLength])
}
