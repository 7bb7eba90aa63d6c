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

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/ytanalytics/internal/telemetry"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// MaxIDsPerRequest is the most identifiers the API accepts in one call.
	MaxIDsPerRequest = 50

	maxPageSize           = 50
	searchDescriptionLen  = 200
	channelDescriptionLen = 300
)

// ErrNoAPIKey is returned when a client is created without a credential.
var ErrNoAPIKey = errors.New("youtube: API key is required")

// APIError is an error body returned by the Data API.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube API %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube API %d: %s", e.StatusCode, e.Message)
}

// Client fetches channel and video records from the YouTube Data API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	onPage  func(collected, target int)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces requests to at most rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithProgress registers a callback invoked after each page of videos.
func WithProgress(fn func(collected, target int)) Option {
	return func(c *Client) { c.onPage = fn }
}

// NewClient creates a Data API client for the given key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchChannels searches for channels matching query. On failure it returns
// an empty list together with the error so callers can report and continue.
func (c *Client) SearchChannels(ctx context.Context, query string, maxResults int) ([]ChannelHit, error) {
	hits := []ChannelHit{}
	params := url.Values{
		"part":              {"snippet"},
		"q":                 {query},
		"type":              {"channel"},
		"maxResults":        {strconv.Itoa(clamp(maxResults, 1, maxPageSize))},
		"relevanceLanguage": {"en"},
	}

	var resp searchResponse
	if err := c.get(ctx, "search", params, &resp); err != nil {
		return hits, fmt.Errorf("searching channels: %w", err)
	}

	for _, item := range resp.Items {
		id := item.Snippet.ChannelID
		if id == "" {
			id = item.ID.ChannelID
		}
		hits = append(hits, ChannelHit{
			ChannelID:   id,
			Title:       item.Snippet.Title,
			Description: truncate(item.Snippet.Description, searchDescriptionLen),
			Thumbnail:   item.Snippet.Thumbnails["default"].URL,
		})
	}

	log.Debug().Str("query", query).Int("hits", len(hits)).Msg("channel search")
	return hits, nil
}

// ChannelStats fetches statistics for the given channel ids. Ids are sent in
// chunks of MaxIDsPerRequest; results keep chunk order.
func (c *Client) ChannelStats(ctx context.Context, channelIDs []string) ([]ChannelRecord, error) {
	records := []ChannelRecord{}

	for _, ids := range chunk(channelIDs, MaxIDsPerRequest) {
		params := url.Values{
			"part": {"snippet,contentDetails,statistics"},
			"id":   {strings.Join(ids, ",")},
		}

		var resp channelListResponse
		if err := c.get(ctx, "channels", params, &resp); err != nil {
			return []ChannelRecord{}, fmt.Errorf("fetching channel stats: %w", err)
		}

		for _, item := range resp.Items {
			country := item.Snippet.Country
			if country == "" {
				country = UnspecifiedCountry
			}
			records = append(records, ChannelRecord{
				ChannelID:    item.ID,
				ChannelTitle: item.Snippet.Title,
				Description:  truncate(item.Snippet.Description, channelDescriptionLen),
				CreatedDate:  item.Snippet.PublishedAt,
				Country:      country,
				Subscribers:  parseCount(item.Statistics.SubscriberCount),
				TotalVideos:  parseCount(item.Statistics.VideoCount),
				TotalViews:   parseCount(item.Statistics.ViewCount),
				PlaylistID:   item.ContentDetails.RelatedPlaylists.Uploads,
			})
		}
	}

	log.Debug().Int("requested", len(channelIDs)).Int("received", len(records)).Msg("channel stats")
	return records, nil
}

// VideoDetails walks a playlist page by page, resolving each page's video ids
// to statistics, until maxResults videos are collected or the playlist ends.
func (c *Client) VideoDetails(ctx context.Context, playlistID string, maxResults int) ([]VideoRecord, error) {
	videos := []VideoRecord{}
	if maxResults <= 0 {
		return videos, nil
	}

	seen := make(map[string]struct{})
	collected := make(map[string]struct{})
	token := ""
	for page := 0; len(videos) < maxResults && page <= maxResults; page++ {
		params := url.Values{
			"part":       {"snippet"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(min(maxPageSize, maxResults-len(videos)))},
		}
		if token != "" {
			params.Set("pageToken", token)
		}

		var resp playlistItemsResponse
		if err := c.get(ctx, "playlistItems", params, &resp); err != nil {
			return []VideoRecord{}, fmt.Errorf("listing playlist %s: %w", playlistID, err)
		}

		ids := make([]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			id := item.Snippet.ResourceID.VideoID
			if id == "" {
				continue
			}
			if _, dup := collected[id]; dup {
				continue
			}
			collected[id] = struct{}{}
			ids = append(ids, id)
		}

		if len(ids) == 0 {
			log.Warn().Str("playlist", playlistID).Int("page", page+1).Msg("page added no new videos, stopping")
			break
		}
		batch, err := c.videoStats(ctx, ids)
		if err != nil {
			return []VideoRecord{}, fmt.Errorf("fetching video stats: %w", err)
		}
		videos = append(videos, batch...)

		if c.onPage != nil {
			c.onPage(min(len(videos), maxResults), maxResults)
		}
		log.Debug().Str("playlist", playlistID).Int("page", page+1).Int("videos", len(videos)).Msg("playlist page")

		next := resp.NextPageToken
		if next == "" || len(resp.Items) == 0 {
			break
		}
		if _, dup := seen[next]; dup {
			log.Warn().Str("playlist", playlistID).Str("token", next).Msg("continuation token repeated, stopping")
			break
		}
		seen[next] = struct{}{}
		token = next
	}

	if len(videos) > maxResults {
		videos = videos[:maxResults]
	}
	return videos, nil
}

func (c *Client) videoStats(ctx context.Context, videoIDs []string) ([]VideoRecord, error) {
	var out []VideoRecord
	for _, ids := range chunk(videoIDs, MaxIDsPerRequest) {
		params := url.Values{
			"part": {"snippet,statistics,contentDetails"},
			"id":   {strings.Join(ids, ",")},
		}

		var resp videoListResponse
		if err := c.get(ctx, "videos", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			duration := item.ContentDetails.Duration
			if duration == "" {
				duration = NoDuration
			}
			out = append(out, VideoRecord{
				VideoID:       item.ID,
				Title:         item.Snippet.Title,
				PublishedDate: item.Snippet.PublishedAt,
				Views:         item.Statistics.ViewCount,
				Likes:         item.Statistics.LikeCount,
				Comments:      item.Statistics.CommentCount,
				Duration:      duration,
			})
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.APIRequests.WithLabelValues(endpoint, telemetry.OutcomeTransport).Inc()
		// url.Error carries the full URL, key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		telemetry.APIRequests.WithLabelValues(endpoint, telemetry.OutcomeAPIError).Inc()
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		telemetry.APIRequests.WithLabelValues(endpoint, telemetry.OutcomeTransport).Inc()
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}

	telemetry.APIRequests.WithLabelValues(endpoint, telemetry.OutcomeOK).Inc()
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		if len(envelope.Error.Errors) > 0 {
			apiErr.Reason = envelope.Error.Errors[0].Reason
		}
	}
	return apiErr
}

// parseCount reads an API count string. Missing, malformed or negative
// values count as zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(ids); i += size {
		out = append(out, ids[i:min(i+size, len(ids))])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
