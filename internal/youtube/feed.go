package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/rs/zerolog/log"
)

// DefaultFeedURL is the public per-channel uploads feed.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// FeedReader reads a channel's recent uploads from its public Atom feed.
// It needs no API key; the feed carries views and ratings but no comment
// counts.
type FeedReader struct {
	feedURL string
	parser  *gofeed.Parser
}

// NewFeedReader creates a reader for the given feed root.
func NewFeedReader(feedURL string) *FeedReader {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &FeedReader{feedURL: feedURL, parser: gofeed.NewParser()}
}

// RecentUploads returns the videos listed in the channel feed, newest first.
func (fr *FeedReader) RecentUploads(ctx context.Context, channelID string) ([]VideoRecord, error) {
	u := fr.feedURL + "?" + url.Values{"channel_id": {channelID}}.Encode()
	feed, err := fr.parser.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("reading upload feed for %s: %w", channelID, err)
	}

	videos := make([]VideoRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if v, ok := feedVideo(item); ok {
			videos = append(videos, v)
		}
	}

	log.Debug().Str("channel", channelID).Int("videos", len(videos)).Msg("upload feed")
	return videos, nil
}

func feedVideo(item *gofeed.Item) (VideoRecord, bool) {
	id := extValue(item.Extensions, "yt", "videoId")
	if id == "" {
		id = strings.TrimPrefix(item.GUID, "yt:video:")
	}
	title := strings.TrimSpace(item.Title)
	if id == "" || title == "" {
		return VideoRecord{}, false
	}

	v := VideoRecord{
		VideoID:  id,
		Title:    title,
		Duration: NoDuration,
	}
	if item.PublishedParsed != nil {
		v.PublishedDate = item.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z")
	} else {
		v.PublishedDate = item.Published
	}

	if group := mediaChild(item.Extensions, "group"); group != nil {
		if community := group.Children["community"]; len(community) > 0 {
			c := community[0]
			if stats := c.Children["statistics"]; len(stats) > 0 {
				v.Views = stats[0].Attrs["views"]
			}
			if rating := c.Children["starRating"]; len(rating) > 0 {
				v.Likes = rating[0].Attrs["count"]
			}
		}
	}
	return v, true
}

func mediaChild(exts ext.Extensions, name string) *ext.Extension {
	media, ok := exts["media"]
	if !ok {
		return nil
	}
	if list := media[name]; len(list) > 0 {
		return &list[0]
	}
	return nil
}

func extValue(exts ext.Extensions, ns, name string) string {
	if list := exts[ns][name]; len(list) > 0 {
		return strings.TrimSpace(list[0].Value)
	}
	return ""
}
