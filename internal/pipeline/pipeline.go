// Package pipeline runs the dashboard actions: each one calls the fetcher,
// runs the metrics pipeline and stores the resulting table on the session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/session"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

// Bounds for the number of videos analysed per channel.
const (
	MinVideoCount     = 10
	MaxVideoCount     = 100
	DefaultVideoCount = 50
)

var (
	ErrEmptyQuery      = errors.New("enter a search query")
	ErrNoSelection     = errors.New("no channels selected")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNoVideos        = errors.New("no videos found")
)

// Fetcher is the subset of the YouTube client the actions need.
type Fetcher interface {
	SearchChannels(ctx context.Context, query string, maxResults int) ([]youtube.ChannelHit, error)
	ChannelStats(ctx context.Context, channelIDs []string) ([]youtube.ChannelRecord, error)
	VideoDetails(ctx context.Context, playlistID string, maxResults int) ([]youtube.VideoRecord, error)
}

// StepResult holds the result of a single action.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a multi-step run.
type Result struct {
	ChannelID string
	Steps     []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs actions against a session.
type Pipeline struct {
	fetcher Fetcher
	now     func() time.Time
}

// New creates a pipeline backed by the given fetcher.
func New(f Fetcher) *Pipeline {
	return &Pipeline{fetcher: f, now: time.Now}
}

// Search looks up channels and stores the hits on the session.
func (p *Pipeline) Search(ctx context.Context, st *session.State, query string, maxResults int) StepResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return StepResult{Name: "Search", Err: ErrEmptyQuery}
	}

	log.Info().Str("query", query).Int("max", maxResults).Msg("Searching channels")
	hits, err := p.fetcher.SearchChannels(ctx, query, maxResults)
	if err != nil {
		return StepResult{Name: "Search", Err: fmt.Errorf("searching %q: %w", query, err)}
	}

	st.SearchedChannels = hits
	return StepResult{
		Name:    "Search",
		Summary: fmt.Sprintf("Found %d channels for %q", len(hits), query),
	}
}

// LoadChannels fetches statistics for ids and replaces the channel table.
// Any previous video analysis is dropped.
func (p *Pipeline) LoadChannels(ctx context.Context, st *session.State, ids []string) StepResult {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return StepResult{Name: "Channels", Err: ErrNoSelection}
	}

	log.Info().Int("channels", len(ids)).Msg("Loading channel statistics")
	records, err := p.fetcher.ChannelStats(ctx, ids)
	if err != nil {
		return StepResult{Name: "Channels", Err: fmt.Errorf("loading channels: %w", err)}
	}

	st.ChannelTable = analytics.ProcessChannelData(records)
	st.ClearVideos()
	return StepResult{
		Name:    "Channels",
		Summary: fmt.Sprintf("Loaded %d channels", len(st.ChannelTable)),
	}
}

// AnalyzeChannel fetches one channel and makes it the current channel.
func (p *Pipeline) AnalyzeChannel(ctx context.Context, st *session.State, channelID string) StepResult {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return StepResult{Name: "Channel", Err: ErrNoSelection}
	}

	records, err := p.fetcher.ChannelStats(ctx, []string{channelID})
	if err != nil {
		return StepResult{Name: "Channel", Err: fmt.Errorf("analyzing channel %s: %w", channelID, err)}
	}
	if len(records) == 0 {
		return StepResult{Name: "Channel", Err: fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)}
	}

	row := analytics.ProcessChannelData(records[:1])[0]
	st.CurrentChannel = &row
	return StepResult{
		Name:    "Channel",
		Summary: fmt.Sprintf("Analyzed %s", row.ChannelTitle),
	}
}

// AnalyzeVideos fetches up to count recent uploads of a loaded channel and
// replaces the video table. count is clamped to [MinVideoCount, MaxVideoCount].
func (p *Pipeline) AnalyzeVideos(ctx context.Context, st *session.State, channelID string, count int) StepResult {
	row, ok := st.Channel(channelID)
	if !ok && st.CurrentChannel != nil && st.CurrentChannel.ChannelID == channelID {
		row, ok = *st.CurrentChannel, true
	}
	if !ok {
		return StepResult{Name: "Videos", Err: fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)}
	}
	if row.PlaylistID == "" {
		return StepResult{Name: "Videos", Err: fmt.Errorf("channel %s has no uploads playlist", row.ChannelTitle)}
	}

	count = ClampVideoCount(count)
	log.Info().Str("channel", row.ChannelTitle).Int("count", count).Msg("Fetching videos")
	records, err := p.fetcher.VideoDetails(ctx, row.PlaylistID, count)
	if err != nil {
		return StepResult{Name: "Videos", Err: fmt.Errorf("fetching videos for %s: %w", row.ChannelTitle, err)}
	}
	if len(records) == 0 {
		return StepResult{Name: "Videos", Err: fmt.Errorf("%w for %s", ErrNoVideos, row.ChannelTitle)}
	}

	st.VideoTable = analytics.ProcessVideoData(records, p.now())
	st.VideoChannelID = row.ChannelID
	st.VideoChannelTitle = row.ChannelTitle
	return StepResult{
		Name:    "Videos",
		Summary: fmt.Sprintf("Analyzed %d videos from %s", len(st.VideoTable), row.ChannelTitle),
	}
}

// Run loads a single channel and analyzes its videos.
func (p *Pipeline) Run(ctx context.Context, st *session.State, channelID string, count int) *Result {
	r := &Result{ChannelID: channelID}

	log.Info().Msg("Step 1/2: Loading channel...")
	step := p.LoadChannels(ctx, st, []string{channelID})
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	log.Info().Msg("Step 2/2: Analyzing videos...")
	r.Steps = append(r.Steps, p.AnalyzeVideos(ctx, st, channelID, count))
	return r
}

// ClampVideoCount bounds a requested video count. Zero means the default.
func ClampVideoCount(n int) int {
	if n == 0 {
		return DefaultVideoCount
	}
	return max(MinVideoCount, min(n, MaxVideoCount))
}

// compactIDs trims ids and drops blanks and repeats, keeping first-seen order.
func compactIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
