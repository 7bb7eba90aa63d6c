package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/pipeline"
	"github.com/TobiSchelling/ytanalytics/internal/report"
	"github.com/TobiSchelling/ytanalytics/internal/session"
)

const keyHelp = `### Getting an API key

1. Open the [Google Cloud Console](https://console.cloud.google.com/) and create a project.
2. Enable **YouTube Data API v3** for the project.
3. Create an **API key** under *APIs & Services > Credentials*.
4. Paste the key below. It is kept only in this session's memory.

The key can also be set in the environment variable named by
` + "`youtube.api_key_env`" + ` before starting the server.`

var searchSizes = []int{10, 20, 30, 50}

func (s *Server) page(st *session.State, active string) map[string]any {
	return map[string]any{
		"Active": active,
		"Flash":  st.TakeFlash(),
		"HasKey": st.HasAPIKey(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, st *session.State) {
	data := s.page(st, "search")
	if !st.HasAPIKey() {
		data["Help"] = keyHelp
		s.render(w, "index.html", data)
		return
	}

	data["SearchSizes"] = searchSizes
	data["SearchMax"] = s.cfg.YouTube.SearchMaxResults
	data["Predefined"] = s.cfg.Channels.Predefined
	data["Hits"] = st.SearchedChannels
	if st.CurrentChannel != nil {
		data["Current"] = report.ChannelDetail(*st.CurrentChannel)
	}
	s.render(w, "index.html", data)
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request, st *session.State) {
	key := strings.TrimSpace(r.FormValue("api_key"))
	if key == "" {
		st.SetFlash(session.FlashError, "Enter a YouTube Data API key")
	} else {
		st.APIKey = key
		st.SetFlash(session.FlashSuccess, "API key saved for this session")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request, st *session.State) {
	st.Clear()
	st.SetFlash(session.FlashInfo, "Session data cleared")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, st *session.State) {
	p, ok := s.runner(st)
	if ok {
		maxResults, err := strconv.Atoi(r.FormValue("max_results"))
		if err != nil {
			maxResults = s.cfg.YouTube.SearchMaxResults
		}
		s.flashResult(st, p.Search(r.Context(), st, r.FormValue("q"), maxResults))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePredefined(w http.ResponseWriter, r *http.Request, st *session.State) {
	p, ok := s.runner(st)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	res := p.LoadChannels(r.Context(), st, s.cfg.Channels.ChannelIDs())
	s.flashResult(st, res)
	s.redirectAfter(w, r, res, "/dashboard")
}

func (s *Server) handleAnalyzeChannels(w http.ResponseWriter, r *http.Request, st *session.State) {
	p, ok := s.runner(st)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if single := r.PostForm.Get("single"); single != "" {
		res := p.AnalyzeChannel(r.Context(), st, single)
		if res.Err == nil {
			res.Summary += ". Load it into the dashboard to compare channels."
		}
		s.flashResult(st, res)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	res := p.LoadChannels(r.Context(), st, r.PostForm["channel_id"])
	s.flashResult(st, res)
	s.redirectAfter(w, r, res, "/dashboard")
}

type timelineBar struct {
	Year  int
	Count int
	Width int
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, st *session.State) {
	data := s.page(st, "dashboard")
	table := st.ChannelTable
	if len(table) > 0 {
		data["Summary"] = analytics.ChannelSummaryStats(table)
		data["Top"] = analytics.TopChannels(table, report.TopN)
		data["Correlation"] = analytics.ChannelCorrelation(table)
		data["Timeline"] = timelineBars(analytics.CreationTimeline(table))
		data["Channels"] = table
	}
	s.render(w, "dashboard.html", data)
}

func timelineBars(years []analytics.YearCount) []timelineBar {
	peak := 0
	for _, y := range years {
		peak = max(peak, y.Count)
	}
	bars := make([]timelineBar, 0, len(years))
	for _, y := range years {
		bars = append(bars, timelineBar{Year: y.Year, Count: y.Count, Width: y.Count * 100 / max(peak, 1)})
	}
	return bars
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request, st *session.State) {
	data := s.page(st, "videos")

	options := append(analytics.ChannelTable(nil), st.ChannelTable...)
	if c := st.CurrentChannel; c != nil {
		if _, ok := st.Channel(c.ChannelID); !ok {
			options = append(options, *c)
		}
	}
	data["Options"] = options
	data["Selected"] = st.VideoChannelID
	data["Count"] = pipeline.ClampVideoCount(s.cfg.YouTube.VideoCount)
	data["MinCount"] = pipeline.MinVideoCount
	data["MaxCount"] = pipeline.MaxVideoCount

	if table := st.VideoTable; len(table) > 0 {
		data["Count"] = len(table)
		data["ChannelTitle"] = st.VideoChannelTitle
		data["Summary"] = analytics.VideoSummaryStats(table)
		data["Top"] = analytics.TopVideos(table, report.TopN)
		data["Monthly"] = analytics.MonthlyEngagement(table)
		data["Videos"] = table
	}
	s.render(w, "videos.html", data)
}

func (s *Server) handleAnalyzeVideos(w http.ResponseWriter, r *http.Request, st *session.State) {
	if p, ok := s.runner(st); ok {
		count, _ := strconv.Atoi(r.FormValue("count"))
		s.flashResult(st, p.AnalyzeVideos(r.Context(), st, r.FormValue("channel_id"), count))
	}
	http.Redirect(w, r, "/videos", http.StatusSeeOther)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, st *session.State) {
	if len(st.VideoTable) == 0 {
		http.Error(w, "No videos analyzed", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_videos.csv"`, exportName(st.VideoChannelID)))
	if err := report.WriteVideoCSV(w, st.VideoTable); err != nil {
		log.Error().Err(err).Msg("writing CSV export")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.CountSessions(r.Context())
	status, code := "ok", http.StatusOK
	if err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "sessions": sessions})
}

// runner returns an action pipeline for the session's key, or flashes why
// there is none.
func (s *Server) runner(st *session.State) (*pipeline.Pipeline, bool) {
	if !st.HasAPIKey() {
		st.SetFlash(session.FlashError, "Enter a YouTube Data API key first")
		return nil, false
	}
	f, err := s.newFetcher(st.APIKey)
	if err != nil {
		st.SetFlash(session.FlashError, err.Error())
		return nil, false
	}
	return pipeline.New(f), true
}

func (s *Server) flashResult(st *session.State, res pipeline.StepResult) {
	if res.Err != nil {
		log.Warn().Err(res.Err).Str("action", res.Name).Msg("action failed")
		st.SetFlash(session.FlashError, res.Err.Error())
		return
	}
	st.SetFlash(session.FlashSuccess, res.Summary)
}

func (s *Server) redirectAfter(w http.ResponseWriter, r *http.Request, res pipeline.StepResult, onSuccess string) {
	target := "/"
	if res.Err == nil {
		target = onSuccess
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// exportName keeps only characters that are safe in a download file name.
func exportName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, id)
	if name == "" {
		return "channel"
	}
	return name
}
