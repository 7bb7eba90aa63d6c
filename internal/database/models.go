package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/ytanalytics/internal/session"
)

// sessionRow mirrors the sessions table. Collections are stored as JSON text.
type sessionRow struct {
	ID                string
	APIKey            string
	SearchedChannels  string
	ChannelTable      string
	CurrentChannel    string
	VideoChannelID    string
	VideoChannelTitle string
	VideoTable        string
	Flash             string
	CreatedAt         int64
	UpdatedAt         int64
}

func rowFromState(st *session.State) (*sessionRow, error) {
	r := &sessionRow{
		ID:                st.ID,
		APIKey:            st.APIKey,
		VideoChannelID:    st.VideoChannelID,
		VideoChannelTitle: st.VideoChannelTitle,
		CreatedAt:         st.CreatedAt.UnixMilli(),
		UpdatedAt:         st.UpdatedAt.UnixMilli(),
	}

	fields := []struct {
		name string
		src  any
		dst  *string
	}{
		{"searched_channels", st.SearchedChannels, &r.SearchedChannels},
		{"channel_table", st.ChannelTable, &r.ChannelTable},
		{"current_channel", st.CurrentChannel, &r.CurrentChannel},
		{"video_table", st.VideoTable, &r.VideoTable},
		{"flash", st.Flash, &r.Flash},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.name, err)
		}
		*f.dst = string(data)
	}
	return r, nil
}

func (r *sessionRow) toState() (*session.State, error) {
	st := &session.State{
		ID:                r.ID,
		APIKey:            r.APIKey,
		VideoChannelID:    r.VideoChannelID,
		VideoChannelTitle: r.VideoChannelTitle,
		CreatedAt:         time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:         time.UnixMilli(r.UpdatedAt).UTC(),
	}

	fields := []struct {
		name string
		src  string
		dst  any
	}{
		{"searched_channels", r.SearchedChannels, &st.SearchedChannels},
		{"channel_table", r.ChannelTable, &st.ChannelTable},
		{"current_channel", r.CurrentChannel, &st.CurrentChannel},
		{"video_table", r.VideoTable, &st.VideoTable},
		{"flash", r.Flash, &st.Flash},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.name, err)
		}
	}
	return st, nil
}
