package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

var refNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func sampleChannels() analytics.ChannelTable {
	return analytics.ProcessChannelData([]youtube.ChannelRecord{
		{ChannelID: "UC1", ChannelTitle: "Alpha | Beta", CreatedDate: "2014-03-01T00:00:00Z", Country: "US", Subscribers: 1234567, TotalVideos: 100, TotalViews: 98765432},
		{ChannelID: "UC2", ChannelTitle: "Gamma", CreatedDate: "2019-01-01T00:00:00Z", Country: youtube.UnspecifiedCountry, Subscribers: 500, TotalVideos: 0, TotalViews: 1000},
	})
}

func sampleVideos() analytics.VideoTable {
	return analytics.ProcessVideoData([]youtube.VideoRecord{
		{VideoID: "v1", Title: "Intro, part 1", Views: "1500", Likes: "45", Comments: "3", PublishedDate: "2024-05-01T10:00:00Z"},
		{VideoID: "v2", Title: "Deep dive", Views: "300", Likes: "1", Comments: "0", PublishedDate: "2024-06-02T10:00:00Z"},
		{VideoID: "v3", Title: "Undated", Views: "7", Likes: "0", Comments: "0", PublishedDate: ""},
	}, refNow)
}

func TestChannelReport(t *testing.T) {
	md := ChannelReport(sampleChannels())

	assert.Contains(t, md, "# Channel Analytics")
	assert.Contains(t, md, "- **Total subscribers:** 1,235,067")
	assert.Contains(t, md, "- **Top channel:** Alpha | Beta")
	assert.Contains(t, md, `| Alpha \| Beta | 1,234,567 |`, "pipes inside cells are escaped")
	assert.Contains(t, md, "| 2014 | 1 |")
	assert.Contains(t, md, "| subscribers | 1.00 |")
}

func TestChannelReportEmpty(t *testing.T) {
	assert.Contains(t, ChannelReport(nil), "No channel data loaded.")
}

func TestChannelReportUndefinedCorrelation(t *testing.T) {
	md := ChannelReport(sampleChannels()[:1])
	assert.Contains(t, md, "n/a")
}

func TestChannelDetail(t *testing.T) {
	md := ChannelDetail(sampleChannels()[1])
	assert.Contains(t, md, "# Gamma")
	assert.Contains(t, md, "- **Created:** 2019-01-01")
	assert.Contains(t, md, "- **Country:** unspecified")
	assert.Contains(t, md, "- **Average views per video:** 1,000")
}

func TestVideoReport(t *testing.T) {
	md := VideoReport("Alpha", sampleVideos())

	assert.Contains(t, md, "# Video Analysis: Alpha")
	assert.Contains(t, md, "- **Videos analyzed:** 3")
	assert.Contains(t, md, "- **Most viewed:** Intro, part 1")
	assert.Contains(t, md, "| Intro, part 1 | 1,500 | 45 | 3 | 3.00% | 2024-05-01 |")
	assert.Contains(t, md, "| Undated | 7 | 0 | 0 | 0.00% | N/A |")
	assert.Contains(t, md, "| 2024-05 | 1 |")
}

func TestVideoReportEmpty(t *testing.T) {
	md := VideoReport("", nil)
	assert.True(t, strings.HasPrefix(md, "# Video Analysis\n"))
	assert.Contains(t, md, "No videos analyzed.")
}

func TestSearchResults(t *testing.T) {
	md := SearchResults("go", []youtube.ChannelHit{{ChannelID: "UC1", Title: "Go Time", Description: "line one\nline two"}})
	assert.Contains(t, md, "| 1 | Go Time | `UC1` | line one line two |")

	assert.Contains(t, SearchResults("x", nil), "No channels found.")
}

func TestWriteVideoCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVideoCSV(&buf, sampleVideos()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, VideoCSVHeader, records[0])
	assert.Equal(t, []string{"Intro, part 1", "1500", "45", "3", "3.00", "2024-05-01"}, records[1])
	assert.Equal(t, "0.33", records[2][4])
	assert.Equal(t, "", records[3][5])
}

func TestWriteVideoCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVideoCSV(&buf, nil))
	assert.Equal(t, "title,views,likes,comments,engagement_rate,published_date\n", buf.String())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,235", Count(1234.6))
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "12.35%", Percent(12.345678))
	assert.Equal(t, "n/a", CorrelationCell(math.NaN()))
	assert.Equal(t, "-0.50", CorrelationCell(-0.5))
}

func TestPrintRawWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, "# Title"))
	assert.Equal(t, "# Title\n", buf.String())
	assert.False(t, IsTerminal(&buf))
}
