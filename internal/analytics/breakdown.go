package analytics

import (
	"math"
	"sort"
)

// ChannelMetricNames are the columns of the channel correlation matrix.
var ChannelMetricNames = []string{"subscribers", "total_videos", "total_views"}

// Correlation is a square Pearson correlation matrix. Undefined cells hold NaN.
type Correlation struct {
	Names  []string
	Matrix [][]float64
}

// YearCount is the number of channels created in a year.
type YearCount struct {
	Year  int
	Count int
}

// MonthStats aggregates the videos published in one calendar month.
type MonthStats struct {
	Month             string
	Videos            int
	AvgViews          float64
	AvgEngagementRate float64
}

// TopChannels returns up to n channels with the most subscribers, ties kept
// in input order.
func TopChannels(table ChannelTable, n int) ChannelTable {
	out := append(ChannelTable(nil), table...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Subscribers > out[j].Subscribers })
	return out[:clampLen(n, len(out))]
}

// TopVideos returns up to n videos with the most views, ties kept in input
// order.
func TopVideos(table VideoTable, n int) VideoTable {
	out := append(VideoTable(nil), table...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Views > out[j].Views })
	return out[:clampLen(n, len(out))]
}

// ChannelCorrelation correlates subscribers, video counts and views.
func ChannelCorrelation(table ChannelTable) Correlation {
	cols := make([][]float64, len(ChannelMetricNames))
	for i := range cols {
		cols[i] = make([]float64, len(table))
	}
	for r, row := range table {
		cols[0][r] = float64(row.Subscribers)
		cols[1][r] = float64(row.TotalVideos)
		cols[2][r] = float64(row.TotalViews)
	}

	m := make([][]float64, len(cols))
	for i := range cols {
		m[i] = make([]float64, len(cols))
		for j := range cols {
			m[i][j] = Pearson(cols[i], cols[j])
		}
	}
	return Correlation{Names: ChannelMetricNames, Matrix: m}
}

// Pearson returns the correlation coefficient of xs and ys, or NaN when it
// is undefined (fewer than two points, mismatched lengths, zero variance).
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return math.NaN()
	}

	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// CreationTimeline counts channels per creation year in ascending order.
// Channels whose creation date could not be parsed are left out.
func CreationTimeline(table ChannelTable) []YearCount {
	counts := make(map[int]int)
	for _, r := range table {
		if r.CreatedYear != 0 {
			counts[r.CreatedYear]++
		}
	}

	out := make([]YearCount, 0, len(counts))
	for y, c := range counts {
		out = append(out, YearCount{Year: y, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// MonthlyEngagement groups videos by publication month and averages views
// and engagement rate. Videos without a parsed date are left out.
func MonthlyEngagement(table VideoTable) []MonthStats {
	type acc struct {
		n                 int
		views, engagement float64
	}
	groups := make(map[string]*acc)
	for _, r := range table {
		if r.PublishedDate.IsZero() {
			continue
		}
		key := r.PublishedDate.UTC().Format("2006-01")
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		a.n++
		a.views += float64(r.Views)
		a.engagement += r.EngagementRate
	}

	out := make([]MonthStats, 0, len(groups))
	for month, a := range groups {
		out = append(out, MonthStats{
			Month:             month,
			Videos:            a.n,
			AvgViews:          a.views / float64(a.n),
			AvgEngagementRate: a.engagement / float64(a.n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func clampLen(n, length int) int {
	if n < 0 {
		return 0
	}
	return min(n, length)
}
