package youtube

// Defaults substituted for fields the API omits.
const (
	UnspecifiedCountry = "unspecified"
	NoDuration         = "N/A"
)

// ChannelHit is one channel returned by a search.
type ChannelHit struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

// ChannelRecord is the flat statistics record for a single channel.
type ChannelRecord struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Description  string `json:"description"`
	CreatedDate  string `json:"created_date"`
	Country      string `json:"country"`
	Subscribers  int64  `json:"subscribers"`
	TotalVideos  int64  `json:"total_videos"`
	TotalViews   int64  `json:"total_views"`
	PlaylistID   string `json:"playlist_id"`
}

// VideoRecord is the flat record for a single video. Counts are kept as the
// source delivers them; the analytics pipeline coerces them to integers.
type VideoRecord struct {
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	PublishedDate string `json:"published_date"`
	Views         string `json:"views"`
	Likes         string `json:"likes"`
	Comments      string `json:"comments"`
	Duration      string `json:"duration"`
}
