package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
)

// VideoCSVHeader is the column order of the video export.
var VideoCSVHeader = []string{"title", "views", "likes", "comments", "engagement_rate", "published_date"}

// WriteVideoCSV writes the video table as CSV. Engagement is rounded to two
// decimals and dates are written as YYYY-MM-DD.
func WriteVideoCSV(w io.Writer, table analytics.VideoTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(VideoCSVHeader); err != nil {
		return err
	}
	for _, r := range table {
		date := ""
		if !r.PublishedDate.IsZero() {
			date = r.PublishedDate.Format("2006-01-02")
		}
		record := []string{
			r.Title,
			strconv.FormatInt(r.Views, 10),
			strconv.FormatInt(r.Likes, 10),
			strconv.FormatInt(r.Comments, 10),
			Decimal(r.EngagementRate),
			date,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
