package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ytanalytics/internal/session"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

type fakeFetcher struct {
	hits     []youtube.ChannelHit
	channels map[string]youtube.ChannelRecord
	videos   []youtube.VideoRecord
	err      error

	searches   int
	statsCalls [][]string
	videoMax   []int
}

func (f *fakeFetcher) SearchChannels(_ context.Context, _ string, _ int) ([]youtube.ChannelHit, error) {
	f.searches++
	if f.err != nil {
		return []youtube.ChannelHit{}, f.err
	}
	return f.hits, nil
}

func (f *fakeFetcher) ChannelStats(_ context.Context, ids []string) ([]youtube.ChannelRecord, error) {
	f.statsCalls = append(f.statsCalls, ids)
	if f.err != nil {
		return []youtube.ChannelRecord{}, f.err
	}
	out := []youtube.ChannelRecord{}
	for _, id := range ids {
		if c, ok := f.channels[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeFetcher) VideoDetails(_ context.Context, _ string, maxResults int) ([]youtube.VideoRecord, error) {
	f.videoMax = append(f.videoMax, maxResults)
	if f.err != nil {
		return []youtube.VideoRecord{}, f.err
	}
	if len(f.videos) > maxResults {
		return f.videos[:maxResults], nil
	}
	return f.videos, nil
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		hits: []youtube.ChannelHit{{ChannelID: "UC1", Title: "One"}, {ChannelID: "UC2", Title: "Two"}},
		channels: map[string]youtube.ChannelRecord{
			"UC1": {ChannelID: "UC1", ChannelTitle: "One", Subscribers: 100, TotalVideos: 4, TotalViews: 400, PlaylistID: "UU1"},
			"UC2": {ChannelID: "UC2", ChannelTitle: "Two", Subscribers: 50, TotalVideos: 0, TotalViews: 30, PlaylistID: "UU2"},
		},
		videos: []youtube.VideoRecord{
			{VideoID: "v1", Title: "First", Views: "200", Likes: "10", Comments: "4", PublishedDate: "2024-06-01T00:00:00Z"},
			{VideoID: "v2", Title: "Second", Views: "0", Likes: "2", Comments: "", PublishedDate: "2024-06-10T00:00:00Z"},
		},
	}
}

func newPipeline(f Fetcher) *Pipeline {
	p := New(f)
	p.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestSearch(t *testing.T) {
	f := newFake()
	st := session.New("s")

	res := newPipeline(f).Search(context.Background(), st, "  data science ", 20)
	require.NoError(t, res.Err)
	assert.Len(t, st.SearchedChannels, 2)
	assert.Contains(t, res.Summary, "2 channels")
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFake()
	st := session.New("s")

	res := newPipeline(f).Search(context.Background(), st, "   ", 20)
	assert.ErrorIs(t, res.Err, ErrEmptyQuery)
	assert.Zero(t, f.searches, "no remote call for an empty query")
}

func TestSearchFailureKeepsState(t *testing.T) {
	f := newFake()
	st := session.New("s")
	st.SearchedChannels = []youtube.ChannelHit{{ChannelID: "old"}}

	f.err = errors.New("quota exceeded")
	res := newPipeline(f).Search(context.Background(), st, "go", 10)
	require.Error(t, res.Err)
	assert.Equal(t, "old", st.SearchedChannels[0].ChannelID)
}

func TestLoadChannels(t *testing.T) {
	f := newFake()
	st := session.New("s")
	st.VideoChannelID = "stale"

	res := newPipeline(f).LoadChannels(context.Background(), st, []string{"UC1", " UC2", "UC1", ""})
	require.NoError(t, res.Err)
	require.Len(t, f.statsCalls, 1)
	assert.Equal(t, []string{"UC1", "UC2"}, f.statsCalls[0])

	require.Len(t, st.ChannelTable, 2)
	assert.InDelta(t, 100.0, st.ChannelTable[0].AvgViewsPerVideo, 1e-9)
	assert.InDelta(t, 30.0, st.ChannelTable[1].AvgViewsPerVideo, 1e-9)
	assert.Empty(t, st.VideoChannelID, "loading channels drops the video analysis")
	assert.Equal(t, "Loaded 2 channels", res.Summary)
}

func TestLoadChannelsNoSelection(t *testing.T) {
	f := newFake()
	res := newPipeline(f).LoadChannels(context.Background(), session.New("s"), []string{" "})
	assert.ErrorIs(t, res.Err, ErrNoSelection)
	assert.Empty(t, f.statsCalls)
}

func TestLoadChannelsFailureKeepsState(t *testing.T) {
	f := newFake()
	p := newPipeline(f)
	st := session.New("s")
	require.NoError(t, p.LoadChannels(context.Background(), st, []string{"UC1"}).Err)

	f.err = errors.New("boom")
	res := p.LoadChannels(context.Background(), st, []string{"UC2"})
	require.Error(t, res.Err)
	require.Len(t, st.ChannelTable, 1)
	assert.Equal(t, "UC1", st.ChannelTable[0].ChannelID)
}

func TestAnalyzeChannel(t *testing.T) {
	f := newFake()
	st := session.New("s")

	res := newPipeline(f).AnalyzeChannel(context.Background(), st, "UC2")
	require.NoError(t, res.Err)
	require.NotNil(t, st.CurrentChannel)
	assert.Equal(t, "Two", st.CurrentChannel.ChannelTitle)
	assert.InDelta(t, 50.0, st.CurrentChannel.SubscriberToVideoRatio, 1e-9)
}

func TestAnalyzeChannelMissing(t *testing.T) {
	st := session.New("s")
	res := newPipeline(newFake()).AnalyzeChannel(context.Background(), st, "UCX")
	assert.ErrorIs(t, res.Err, ErrChannelNotFound)
	assert.Nil(t, st.CurrentChannel)
}

func TestAnalyzeVideos(t *testing.T) {
	f := newFake()
	p := newPipeline(f)
	st := session.New("s")
	require.NoError(t, p.LoadChannels(context.Background(), st, []string{"UC1"}).Err)

	res := p.AnalyzeVideos(context.Background(), st, "UC1", 500)
	require.NoError(t, res.Err)
	assert.Equal(t, []int{MaxVideoCount}, f.videoMax)

	require.Len(t, st.VideoTable, 2)
	assert.Equal(t, "UC1", st.VideoChannelID)
	assert.Equal(t, "One", st.VideoChannelTitle)
	assert.InDelta(t, 5.0, st.VideoTable[0].EngagementRate, 1e-9)
	assert.Equal(t, 14, st.VideoTable[0].DaysSincePublished)
	assert.InDelta(t, 200.0, st.VideoTable[1].EngagementRate, 1e-9)
}

func TestAnalyzeVideosUsesCurrentChannel(t *testing.T) {
	f := newFake()
	p := newPipeline(f)
	st := session.New("s")
	require.NoError(t, p.AnalyzeChannel(context.Background(), st, "UC2").Err)

	res := p.AnalyzeVideos(context.Background(), st, "UC2", 1)
	require.NoError(t, res.Err)
	assert.Equal(t, []int{MinVideoCount}, f.videoMax)
	assert.Equal(t, "Two", st.VideoChannelTitle)
}

func TestAnalyzeVideosUnknownChannel(t *testing.T) {
	f := newFake()
	res := newPipeline(f).AnalyzeVideos(context.Background(), session.New("s"), "UC1", 50)
	assert.ErrorIs(t, res.Err, ErrChannelNotFound)
	assert.Empty(t, f.videoMax)
}

func TestAnalyzeVideosEmptyKeepsState(t *testing.T) {
	f := newFake()
	p := newPipeline(f)
	st := session.New("s")
	p.LoadChannels(context.Background(), st, []string{"UC1"})
	require.NoError(t, p.AnalyzeVideos(context.Background(), st, "UC1", 50).Err)

	f.videos = nil
	res := p.AnalyzeVideos(context.Background(), st, "UC1", 50)
	assert.ErrorIs(t, res.Err, ErrNoVideos)
	assert.Len(t, st.VideoTable, 2)
}

func TestRun(t *testing.T) {
	f := newFake()
	st := session.New("s")

	r := newPipeline(f).Run(context.Background(), st, "UC1", 20)
	require.Len(t, r.Steps, 2)
	assert.False(t, r.Failed())
	assert.Len(t, st.VideoTable, 2)
}

func TestRunStopsOnFailure(t *testing.T) {
	f := newFake()
	f.err = errors.New("down")

	r := newPipeline(f).Run(context.Background(), session.New("s"), "UC1", 20)
	require.Len(t, r.Steps, 1)
	assert.True(t, r.Failed())
	assert.Empty(t, f.videoMax)
}

func TestClampVideoCount(t *testing.T) {
	assert.Equal(t, DefaultVideoCount, ClampVideoCount(0))
	assert.Equal(t, MinVideoCount, ClampVideoCount(-5))
	assert.Equal(t, MinVideoCount, ClampVideoCount(3))
	assert.Equal(t, 42, ClampVideoCount(42))
	assert.Equal(t, MaxVideoCount, ClampVideoCount(1000))
}
