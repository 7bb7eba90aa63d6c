// Package session defines the per-user dashboard state. State lives only for
// the duration of an analysis session and is never written to disk.
package session

import (
	"context"
	"time"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

// Flash levels.
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// State is everything one user has fetched or selected.
type State struct {
	ID     string
	APIKey string

	SearchedChannels []youtube.ChannelHit
	ChannelTable     analytics.ChannelTable
	CurrentChannel   *analytics.ChannelRow

	VideoChannelID    string
	VideoChannelTitle string
	VideoTable        analytics.VideoTable

	Flash *Flash

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an empty state for the given session id.
func New(id string) *State {
	now := time.Now().UTC()
	return &State{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Clear drops all fetched data. The session id and API key are kept.
func (s *State) Clear() {
	s.SearchedChannels = nil
	s.ChannelTable = nil
	s.CurrentChannel = nil
	s.Flash = nil
	s.ClearVideos()
}

// ClearVideos drops the current video analysis.
func (s *State) ClearVideos() {
	s.VideoChannelID = ""
	s.VideoChannelTitle = ""
	s.VideoTable = nil
}

// HasAPIKey reports whether a credential was supplied for this session.
func (s *State) HasAPIKey() bool {
	return s.APIKey != ""
}

// Channel finds a row of the channel table by id.
func (s *State) Channel(channelID string) (analytics.ChannelRow, bool) {
	for _, row := range s.ChannelTable {
		if row.ChannelID == channelID {
			return row, true
		}
	}
	return analytics.ChannelRow{}, false
}

// SetFlash records a message for the next render.
func (s *State) SetFlash(level, text string) {
	s.Flash = &Flash{Level: level, Text: text}
}

// TakeFlash returns the pending message and clears it.
func (s *State) TakeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// Store loads and saves session state.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
	PurgeIdle(ctx context.Context, olderThan time.Time) (int64, error)
}
