// Package report turns analytics tables into markdown and CSV.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

// TopN is the number of rows shown in the "top" sections.
const TopN = 10

// ChannelReport summarizes a channel table.
func ChannelReport(table analytics.ChannelTable) string {
	if len(table) == 0 {
		return "# Channel Analytics\n\nNo channel data loaded."
	}

	s := analytics.ChannelSummaryStats(table)
	sections := []string{
		"# Channel Analytics",
		bullets(
			"Channels", strconv.Itoa(s.TotalChannels),
			"Total subscribers", humanize.Comma(s.TotalSubscribers),
			"Total videos", humanize.Comma(s.TotalVideos),
			"Total views", humanize.Comma(s.TotalViews),
			"Average subscribers", Count(s.AvgSubscribers),
			"Median subscribers", Count(s.MedianSubscribers),
			"Average videos per channel", Decimal(s.AvgVideosPerChannel),
			"Average views per channel", Count(s.AvgViewsPerChannel),
			"Top channel", s.TopChannel,
		),
		"## Top Channels by Subscribers\n\n" + channelRows(analytics.TopChannels(table, TopN)),
		"## Correlation\n\n" + correlationTable(analytics.ChannelCorrelation(table)),
		"## Channels Created per Year\n\n" + timelineTable(analytics.CreationTimeline(table)),
	}
	return strings.Join(sections, "\n\n")
}

// ChannelDetail describes a single channel.
func ChannelDetail(row analytics.ChannelRow) string {
	created := row.CreatedDate
	if row.CreatedYear != 0 && len(created) >= 10 {
		created = created[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", row.ChannelTitle)
	if row.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", row.Description)
	}
	b.WriteString(bullets(
		"Channel ID", "`"+row.ChannelID+"`",
		"Country", row.Country,
		"Created", created,
		"Subscribers", humanize.Comma(row.Subscribers),
		"Videos", humanize.Comma(row.TotalVideos),
		"Views", humanize.Comma(row.TotalViews),
		"Average views per video", Count(row.AvgViewsPerVideo),
		"Subscribers per video", Decimal(row.SubscriberToVideoRatio),
	))
	return b.String()
}

// VideoReport summarizes the video table of one channel.
func VideoReport(channelTitle string, table analytics.VideoTable) string {
	heading := "# Video Analysis"
	if channelTitle != "" {
		heading += ": " + channelTitle
	}
	if len(table) == 0 {
		return heading + "\n\nNo videos analyzed."
	}

	s := analytics.VideoSummaryStats(table)
	sections := []string{
		heading,
		bullets(
			"Videos analyzed", strconv.Itoa(s.TotalVideos),
			"Total views", humanize.Comma(s.TotalViews),
			"Average views", Count(s.AvgViews),
			"Median views", Count(s.MedianViews),
			"Average likes", Count(s.AvgLikes),
			"Average comments", Count(s.AvgComments),
			"Average engagement rate", Percent(s.AvgEngagementRate),
			"Average comment rate", Percent(s.AvgCommentRate),
			"Most viewed", s.MostViewed,
			"Most engaging", s.MostEngaging,
		),
		"## Top Videos by Views\n\n" + videoRows(analytics.TopVideos(table, TopN)),
		"## Monthly Engagement\n\n" + monthlyTable(analytics.MonthlyEngagement(table)),
		"## All Videos\n\n" + videoRows(table),
	}
	return strings.Join(sections, "\n\n")
}

// SearchResults lists channel search hits.
func SearchResults(query string, hits []youtube.ChannelHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Channels matching %q\n\n", query)
	if len(hits) == 0 {
		b.WriteString("No channels found.")
		return b.String()
	}
	b.WriteString("| # | Channel | ID | Description |\n|---|---|---|---|\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "| %d | %s | `%s` | %s |\n", i+1, cell(h.Title), h.ChannelID, cell(h.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Count formats a mean as a whole number with thousands separators.
func Count(f float64) string {
	return humanize.CommafWithDigits(math.Round(f), 0)
}

// Decimal formats f with two decimals.
func Decimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Percent formats a rate that is already scaled to 0..100.
func Percent(f float64) string {
	return Decimal(f) + "%"
}

// Date formats a publication time as a calendar date, or "N/A" when unknown.
func Date(row analytics.VideoRow) string {
	if row.PublishedDate.IsZero() {
		return analytics.NotAvailable
	}
	return row.PublishedDate.Format("2006-01-02")
}

// CorrelationCell formats one cell of a correlation matrix.
func CorrelationCell(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return Decimal(v)
}

func bullets(pairs ...string) string {
	var lines []string
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, fmt.Sprintf("- **%s:** %s", pairs[i], pairs[i+1]))
	}
	return strings.Join(lines, "\n")
}

func channelRows(rows analytics.ChannelTable) string {
	var b strings.Builder
	b.WriteString("| Channel | Subscribers | Videos | Views | Views/Video | Country |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(r.ChannelTitle),
			humanize.Comma(r.Subscribers),
			humanize.Comma(r.TotalVideos),
			humanize.Comma(r.TotalViews),
			Count(r.AvgViewsPerVideo),
			r.Country,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func videoRows(rows analytics.VideoTable) string {
	var b strings.Builder
	b.WriteString("| Title | Views | Likes | Comments | Engagement | Published |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(r.Title),
			humanize.Comma(r.Views),
			humanize.Comma(r.Likes),
			humanize.Comma(r.Comments),
			Percent(r.EngagementRate),
			Date(r),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func correlationTable(c analytics.Correlation) string {
	var b strings.Builder
	b.WriteString("| |")
	for _, n := range c.Names {
		b.WriteString(" " + n + " |")
	}
	b.WriteString("\n|---|" + strings.Repeat("---:|", len(c.Names)) + "\n")
	for i, row := range c.Matrix {
		b.WriteString("| " + c.Names[i] + " |")
		for _, v := range row {
			b.WriteString(" " + CorrelationCell(v) + " |")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func timelineTable(years []analytics.YearCount) string {
	if len(years) == 0 {
		return "No creation dates available."
	}
	var b strings.Builder
	b.WriteString("| Year | Channels |\n|---|---:|\n")
	for _, y := range years {
		fmt.Fprintf(&b, "| %d | %d |\n", y.Year, y.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func monthlyTable(months []analytics.MonthStats) string {
	if len(months) == 0 {
		return "No publication dates available."
	}
	var b strings.Builder
	b.WriteString("| Month | Videos | Avg Views | Avg Engagement |\n|---|---:|---:|---:|\n")
	for _, m := range months {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", m.Month, m.Videos, Count(m.AvgViews), Percent(m.AvgEngagementRate))
	}
	return strings.TrimRight(b.String(), "\n")
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
