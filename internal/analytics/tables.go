// Package analytics turns raw channel and video records into tables with
// derived metrics and computes summary statistics over them.
//
// Every ratio substitutes 1 for a zero denominator, so a channel with no
// videos reports its raw view count as views-per-video. Rates are not
// clamped. Rows keep the order of the input records.
package analytics

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/ytanalytics/internal/telemetry"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

// ChannelRow is a channel record enriched with derived columns.
type ChannelRow struct {
	youtube.ChannelRecord
	CreatedYear            int     `json:"created_year"`
	AvgViewsPerVideo       float64 `json:"avg_views_per_video"`
	SubscriberToVideoRatio float64 `json:"subscriber_to_video_ratio"`
}

// ChannelTable is an ordered set of channel rows.
type ChannelTable []ChannelRow

// VideoRow is a video record with coerced counts and derived columns.
type VideoRow struct {
	VideoID            string    `json:"video_id"`
	Title              string    `json:"title"`
	PublishedDate      time.Time `json:"published_date"`
	Views              int64     `json:"views"`
	Likes              int64     `json:"likes"`
	Comments           int64     `json:"comments"`
	Duration           string    `json:"duration"`
	EngagementRate     float64   `json:"engagement_rate"`
	CommentRate        float64   `json:"comment_rate"`
	DaysSincePublished int       `json:"days_since_published"`
}

// VideoTable is an ordered set of video rows.
type VideoTable []VideoRow

// ProcessChannelData adds created year, average views per video and the
// subscriber to video ratio to each record.
func ProcessChannelData(records []youtube.ChannelRecord) ChannelTable {
	table := make(ChannelTable, 0, len(records))
	for _, r := range records {
		row := ChannelRow{
			ChannelRecord:          r,
			AvgViewsPerVideo:       ratio(r.TotalViews, r.TotalVideos),
			SubscriberToVideoRatio: ratio(r.Subscribers, r.TotalVideos),
		}
		if t, ok := parseTimestamp(r.CreatedDate); ok {
			row.CreatedYear = t.Year()
		}
		table = append(table, row)
	}
	telemetry.RowsProcessed.WithLabelValues("channels").Add(float64(len(table)))
	return table
}

// ProcessVideoData coerces counts to non-negative integers and adds the
// engagement rate, comment rate and age in whole days relative to now.
func ProcessVideoData(records []youtube.VideoRecord, now time.Time) VideoTable {
	table := make(VideoTable, 0, len(records))
	for _, r := range records {
		row := VideoRow{
			VideoID:  r.VideoID,
			Title:    r.Title,
			Views:    coerceCount(r.Views),
			Likes:    coerceCount(r.Likes),
			Comments: coerceCount(r.Comments),
			Duration: r.Duration,
		}
		if row.Duration == "" {
			row.Duration = youtube.NoDuration
		}
		row.EngagementRate = ratio(row.Likes, row.Views) * 100
		row.CommentRate = ratio(row.Comments, row.Views) * 100

		if t, ok := parseTimestamp(r.PublishedDate); ok {
			row.PublishedDate = t
			row.DaysSincePublished = daysBetween(t, now)
		}
		table = append(table, row)
	}
	telemetry.RowsProcessed.WithLabelValues("videos").Add(float64(len(table)))
	return table
}

// ratio divides num by den, substituting 1 for a zero denominator.
func ratio(num, den int64) float64 {
	if den == 0 {
		den = 1
	}
	return float64(num) / float64(den)
}

// coerceCount parses a count delivered as text. Non-numeric, missing and
// negative values become 0; fractional values are truncated.
func coerceCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// parseTimestamp accepts zone-aware and naive timestamps. Naive values are
// read as UTC; the result is always in UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// daysBetween returns the whole days from t to now, floored, with both sides
// normalised to UTC.
func daysBetween(t, now time.Time) int {
	d := now.UTC().Sub(t.UTC())
	return int(math.Floor(d.Hours() / 24))
}
