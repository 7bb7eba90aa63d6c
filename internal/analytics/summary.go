package analytics

import "sort"

// NotAvailable is reported for titles when a table has no rows.
const NotAvailable = "N/A"

// ChannelSummary aggregates a channel table.
type ChannelSummary struct {
	TotalChannels       int     `json:"total_channels"`
	TotalSubscribers    int64   `json:"total_subscribers"`
	TotalVideos         int64   `json:"total_videos"`
	TotalViews          int64   `json:"total_views"`
	AvgSubscribers      float64 `json:"avg_subscribers"`
	AvgVideosPerChannel float64 `json:"avg_videos_per_channel"`
	AvgViewsPerChannel  float64 `json:"avg_views_per_channel"`
	MedianSubscribers   float64 `json:"median_subscribers"`
	TopChannel          string  `json:"top_channel"`
}

// VideoSummary aggregates a video table.
type VideoSummary struct {
	TotalVideos       int     `json:"total_videos"`
	TotalViews        int64   `json:"total_views"`
	TotalLikes        int64   `json:"total_likes"`
	TotalComments     int64   `json:"total_comments"`
	AvgViews          float64 `json:"avg_views"`
	AvgLikes          float64 `json:"avg_likes"`
	AvgComments       float64 `json:"avg_comments"`
	MedianViews       float64 `json:"median_views"`
	MedianLikes       float64 `json:"median_likes"`
	MedianComments    float64 `json:"median_comments"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
	AvgCommentRate    float64 `json:"avg_comment_rate"`
	MostViewed        string  `json:"most_viewed"`
	MostEngaging      string  `json:"most_engaging"`
}

// ChannelSummaryStats computes totals, means, the subscriber median and the
// channel with the most subscribers. An empty table yields zeros and "N/A".
func ChannelSummaryStats(table ChannelTable) ChannelSummary {
	if len(table) == 0 {
		return ChannelSummary{TopChannel: NotAvailable}
	}

	subs := make([]float64, len(table))
	var s ChannelSummary
	s.TotalChannels = len(table)
	for i, r := range table {
		s.TotalSubscribers += r.Subscribers
		s.TotalVideos += r.TotalVideos
		s.TotalViews += r.TotalViews
		subs[i] = float64(r.Subscribers)
	}

	n := float64(len(table))
	s.AvgSubscribers = float64(s.TotalSubscribers) / n
	s.AvgVideosPerChannel = float64(s.TotalVideos) / n
	s.AvgViewsPerChannel = float64(s.TotalViews) / n
	s.MedianSubscribers = Median(subs)

	top := argmax(len(table), func(i int) float64 { return float64(table[i].Subscribers) })
	s.TopChannel = table[top].ChannelTitle
	return s
}

// VideoSummaryStats computes totals, means and medians of the counts, mean
// rates, and the most viewed and most engaging titles.
func VideoSummaryStats(table VideoTable) VideoSummary {
	// argmax over an empty table is undefined, so this branch is explicit.
	if len(table) == 0 {
		return VideoSummary{MostViewed: NotAvailable, MostEngaging: NotAvailable}
	}

	views := make([]float64, len(table))
	likes := make([]float64, len(table))
	comments := make([]float64, len(table))
	var engagement, commentRate float64

	var s VideoSummary
	s.TotalVideos = len(table)
	for i, r := range table {
		s.TotalViews += r.Views
		s.TotalLikes += r.Likes
		s.TotalComments += r.Comments
		views[i] = float64(r.Views)
		likes[i] = float64(r.Likes)
		comments[i] = float64(r.Comments)
		engagement += r.EngagementRate
		commentRate += r.CommentRate
	}

	n := float64(len(table))
	s.AvgViews = float64(s.TotalViews) / n
	s.AvgLikes = float64(s.TotalLikes) / n
	s.AvgComments = float64(s.TotalComments) / n
	s.MedianViews = Median(views)
	s.MedianLikes = Median(likes)
	s.MedianComments = Median(comments)
	s.AvgEngagementRate = engagement / n
	s.AvgCommentRate = commentRate / n

	s.MostViewed = table[argmax(len(table), func(i int) float64 { return float64(table[i].Views) })].Title
	s.MostEngaging = table[argmax(len(table), func(i int) float64 { return table[i].EngagementRate })].Title
	return s
}

// argmax returns the index of the largest value; the first one wins on ties.
// n must be positive.
func argmax(n int, value func(i int) float64) int {
	best := 0
	for i := 1; i < n; i++ {
		if value(i) > value(best) {
			best = i
		}
	}
	return best
}

// Median returns the middle value of xs, averaging the two middle values for
// even lengths. It returns 0 for an empty slice and does not modify xs.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
