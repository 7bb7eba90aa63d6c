package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves a deterministic subset of the Data API.
type fakeAPI struct {
	mu          sync.Mutex
	calls       map[string]int
	channelIDs  [][]string
	pageSizes   []int
	playlistLen int
	fixedToken  string
	overlap     int
	status      int
}

func newFakeAPI(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	f.calls = make(map[string]int)
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func (f *fakeAPI) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	q := r.URL.Query()

	f.mu.Lock()
	f.calls[endpoint]++
	f.mu.Unlock()

	if q.Get("key") != "test-key" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		fmt.Fprint(w, `{"error":{"code":403,"message":"quota exhausted","errors":[{"reason":"quotaExceeded"}]}}`)
		return
	}

	switch endpoint {
	case "search":
		writeJSON(w, map[string]any{"items": []any{
			map[string]any{
				"id": map[string]any{"channelId": "UC1"},
				"snippet": map[string]any{
					"channelId":   "UC1",
					"title":       "Stats Channel",
					"description": strings.Repeat("x", 250),
					"thumbnails":  map[string]any{"default": map[string]any{"url": "https://img/1.jpg"}},
				},
			},
		}})
	case "channels":
		ids := strings.Split(q.Get("id"), ",")
		f.mu.Lock()
		f.channelIDs = append(f.channelIDs, ids)
		f.mu.Unlock()
		var items []any
		for _, id := range ids {
			item := map[string]any{
				"id": id,
				"snippet": map[string]any{
					"title":       "Channel " + id,
					"publishedAt": "2015-03-01T10:00:00Z",
				},
				"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU" + id}},
				"statistics":     map[string]any{"subscriberCount": "1000", "videoCount": "10", "viewCount": "50000"},
			}
			if id == "bare" {
				delete(item, "statistics")
			} else {
				item["snippet"].(map[string]any)["country"] = "DE"
			}
			items = append(items, item)
		}
		writeJSON(w, map[string]any{"items": items})
	case "playlistItems":
		size, _ := strconv.Atoi(q.Get("maxResults"))
		f.mu.Lock()
		f.pageSizes = append(f.pageSizes, size)
		f.mu.Unlock()

		offset, _ := strconv.Atoi(q.Get("pageToken"))
		end := min(offset+size, f.playlistLen)
		var items []any
		for i := offset; i < end; i++ {
			items = append(items, map[string]any{
				"snippet": map[string]any{"resourceId": map[string]any{"videoId": fmt.Sprintf("vid%08d", i)}},
			})
		}
		resp := map[string]any{"items": items}
		if f.fixedToken != "" {
			resp["nextPageToken"] = f.fixedToken
		} else if end < f.playlistLen {
			resp["nextPageToken"] = strconv.Itoa(end - f.overlap)
		}
		writeJSON(w, resp)
	case "videos":
		var items []any
		for _, id := range strings.Split(q.Get("id"), ",") {
			items = append(items, map[string]any{
				"id":         id,
				"snippet":    map[string]any{"title": "Video " + id, "publishedAt": "2024-01-15T12:00:00Z"},
				"statistics": map[string]any{"viewCount": "200", "likeCount": "10", "commentCount": "2"},
			})
		}
		writeJSON(w, map[string]any{"items": items})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSearchChannels(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeAPI(t, f)

	hits, err := c.SearchChannels(context.Background(), "statistics", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "UC1", hits[0].ChannelID)
	assert.Equal(t, "Stats Channel", hits[0].Title)
	assert.Equal(t, "https://img/1.jpg", hits[0].Thumbnail)
	assert.Equal(t, strings.Repeat("x", 200)+"...", hits[0].Description)
}

func TestSearchChannelsFailsSoft(t *testing.T) {
	f := &fakeAPI{status: http.StatusForbidden}
	c := newFakeAPI(t, f)

	hits, err := c.SearchChannels(context.Background(), "anything", 10)
	require.Error(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "quotaExceeded", apiErr.Reason)
	assert.Equal(t, "quota exhausted", apiErr.Message)
}

func TestChannelStatsChunksRequests(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeAPI(t, f)

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("UC%03d", i)
	}

	records, err := c.ChannelStats(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 3, f.count("channels"))
	require.Len(t, f.channelIDs, 3)
	assert.Len(t, f.channelIDs[0], 50)
	assert.Len(t, f.channelIDs[1], 50)
	assert.Len(t, f.channelIDs[2], 20)

	require.Len(t, records, 120)
	for i, r := range records {
		assert.Equal(t, ids[i], r.ChannelID)
	}
	assert.Equal(t, "UUUC000", records[0].PlaylistID)
	assert.Equal(t, int64(1000), records[0].Subscribers)
	assert.Equal(t, "DE", records[0].Country)
}

func TestChannelStatsMissingFields(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeAPI(t, f)

	records, err := c.ChannelStats(context.Background(), []string{"bare"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, UnspecifiedCountry, records[0].Country)
	assert.Zero(t, records[0].Subscribers)
	assert.Zero(t, records[0].TotalVideos)
	assert.Zero(t, records[0].TotalViews)
}

func TestChannelStatsEmptyInput(t *testing.T) {
	f := &fakeAPI{}
	c := newFakeAPI(t, f)

	records, err := c.ChannelStats(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Zero(t, f.count("channels"))
}

func TestVideoDetailsPaginates(t *testing.T) {
	f := &fakeAPI{playlistLen: 200}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 75)
	require.NoError(t, err)
	assert.Len(t, videos, 75)
	assert.Equal(t, 2, f.count("playlistItems"))
	assert.Equal(t, []int{50, 25}, f.pageSizes)
	assert.Equal(t, "vid00000000", videos[0].VideoID)
	assert.Equal(t, "vid00000074", videos[74].VideoID)
	assert.Equal(t, NoDuration, videos[0].Duration)
	assert.Equal(t, "200", videos[0].Views)
}

func TestVideoDetailsStopsWhenExhausted(t *testing.T) {
	f := &fakeAPI{playlistLen: 30}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 75)
	require.NoError(t, err)
	assert.Len(t, videos, 30)
	assert.Equal(t, 1, f.count("playlistItems"))
}

func TestVideoDetailsRepeatedToken(t *testing.T) {
	f := &fakeAPI{playlistLen: 500, fixedToken: "0"}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 100)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("playlistItems"))
	require.Len(t, videos, 50)

	ids := make(map[string]bool, len(videos))
	for _, v := range videos {
		assert.False(t, ids[v.VideoID], "duplicate video %s", v.VideoID)
		ids[v.VideoID] = true
	}
}

func TestVideoDetailsOverlappingPages(t *testing.T) {
	f := &fakeAPI{playlistLen: 120, overlap: 10}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 100)
	require.NoError(t, err)

	ids := make(map[string]bool, len(videos))
	for _, v := range videos {
		assert.False(t, ids[v.VideoID], "duplicate video %s", v.VideoID)
		ids[v.VideoID] = true
	}
	assert.Len(t, videos, 90)
	assert.Equal(t, 3, f.count("playlistItems"))
}

func TestVideoDetailsZeroRequested(t *testing.T) {
	f := &fakeAPI{playlistLen: 10}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 0)
	require.NoError(t, err)
	assert.Empty(t, videos)
	assert.Zero(t, f.count("playlistItems"))
}

func TestVideoDetailsProgress(t *testing.T) {
	f := &fakeAPI{playlistLen: 120}
	f.calls = make(map[string]int)
	srv := httptest.NewServer(f)
	defer srv.Close()

	var seen []int
	c, err := NewClient("test-key", WithBaseURL(srv.URL), WithProgress(func(collected, target int) {
		assert.Equal(t, 100, target)
		seen = append(seen, collected)
	}))
	require.NoError(t, err)

	_, err = c.VideoDetails(context.Background(), "UU1", 100)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, seen)
}

func TestVideoDetailsAPIError(t *testing.T) {
	f := &fakeAPI{status: http.StatusNotFound}
	c := newFakeAPI(t, f)

	videos, err := c.VideoDetails(context.Background(), "UU1", 10)
	require.Error(t, err)
	assert.Empty(t, videos)
	assert.Contains(t, err.Error(), "listing playlist UU1")
}

func TestParseCount(t *testing.T) {
	cases := map[string]int64{
		"":      0,
		"12":    12,
		" 7 ":   7,
		"-5":    0,
		"1.5":   0,
		"abc":   0,
		"90000": 90000,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseCount(in), "parseCount(%q)", in)
	}
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 50))
	parts := chunk([]string{"a", "b", "c"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, parts)
}

func TestTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient("super-secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.ChannelStats(context.Background(), []string{"UC1"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")
}
