package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultSearchLimit = 10
	defaultHTTPTimeout = 15 * time.Second
)

// ErrFetch marks origin-platform failures; callers degrade per channel
// rather than aborting a whole generation.
var ErrFetch = errors.New("youtube: fetch failed")

// FetchError reports a failed platform call for one channel or ID batch.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("youtube: %s call failed: %v", e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("youtube: %s call returned status %d", e.Endpoint, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return ErrFetch
}

// ClientConfig configures the platform API client.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	SearchLimit int
	HTTPClient  *http.Client
}

// Client calls the platform's search, videos and subscriptions endpoints.
type Client struct {
	apiKey      string
	baseURL     string
	searchLimit int
	httpClient  *http.Client
}

// NewClient constructs a platform API client with bounded timeouts.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	searchLimit := cfg.SearchLimit
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		searchLimit: searchLimit,
		httpClient:  httpClient,
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// SearchRecentVideoIDs returns the channel's most recent video IDs, newest first.
func (c *Client) SearchRecentVideoIDs(ctx context.Context, channelID string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.searchLimit))
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, "search", params, "")
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{Endpoint: "search", Cause: err}
	}

	ids := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Tags       []string `json:"tags"`
			CategoryID string   `json:"categoryId"`
			Localized  struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"localized"`
		} `json:"snippet"`
	} `json:"items"`
}

// VideoMetadata fetches and normalizes metadata for up to metadataBatchSize IDs.
func (c *Client) VideoMetadata(ctx context.Context, videoIDs []string) ([]VideoRecord, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	if len(videoIDs) > metadataBatchSize {
		return nil, fmt.Errorf("youtube: metadata batch exceeds %d ids", metadataBatchSize)
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(videoIDs, ","))
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, "videos", params, "")
	if err != nil {
		return nil, err
	}

	var parsed videosResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{Endpoint: "videos", Cause: err}
	}

	records := make([]VideoRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		records = append(records, VideoRecord{
			VideoID:              item.ID,
			Tags:                 truncateTags(item.Snippet.Tags),
			CategoryID:           item.Snippet.CategoryID,
			LocalizedTitle:       item.Snippet.Localized.Title,
			LocalizedDescription: truncateDescription(item.Snippet.Localized.Description),
		})
	}
	return records, nil
}

type subscriptionsResponse struct {
	Items []struct {
		Snippet struct {
			Title      string `json:"title"`
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
			Thumbnails struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Subscriptions lists channels followed by the user behind the access token.
func (c *Client) Subscriptions(ctx context.Context, accessToken string) ([]Subscription, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("mine", "true")
	params.Set("maxResults", "50")

	body, err := c.get(ctx, "subscriptions", params, accessToken)
	if err != nil {
		return nil, err
	}

	var parsed subscriptionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{Endpoint: "subscriptions", Cause: err}
	}

	subscriptions := make([]Subscription, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		subscriptions = append(subscriptions, Subscription{
			ChannelID:    item.Snippet.ResourceID.ChannelID,
			Title:        item.Snippet.Title,
			ThumbnailURL: item.Snippet.Thumbnails.High.URL,
		})
	}
	return subscriptions, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, bearerToken string) ([]byte, error) {
	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Cause: err}
	}
	if bearerToken != "" {
		request.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Cause: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: response.StatusCode}
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Cause: err}
	}
	return body, nil
}
