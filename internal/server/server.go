package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/config"
	"github.com/TobiSchelling/ytanalytics/internal/logging"
	"github.com/TobiSchelling/ytanalytics/internal/pipeline"
	"github.com/TobiSchelling/ytanalytics/internal/report"
	"github.com/TobiSchelling/ytanalytics/internal/session"
	"github.com/TobiSchelling/ytanalytics/internal/telemetry"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Store persists dashboard sessions.
type Store interface {
	session.Store
	CountSessions(ctx context.Context) (int, error)
}

// FetcherFactory builds a fetcher for a session's API key.
type FetcherFactory func(apiKey string) (pipeline.Fetcher, error)

// ClientFactory returns a FetcherFactory backed by the YouTube Data API.
func ClientFactory(yt config.YouTube) FetcherFactory {
	return func(apiKey string) (pipeline.Fetcher, error) {
		c, err := youtube.NewClient(apiKey,
			youtube.WithBaseURL(yt.BaseURL),
			youtube.WithHTTPClient(&http.Client{Timeout: yt.Timeout}),
			youtube.WithRateLimit(yt.RequestsPerSecond),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Server is the HTTP server for the analytics dashboard.
type Server struct {
	store      Store
	cfg        *config.Config
	newFetcher FetcherFactory
	pages      map[string]*template.Template
	mux        *http.ServeMux
	now        func() time.Time
}

// New creates a new Server.
func New(store Store, cfg *config.Config, newFetcher FetcherFactory) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"comma":    humanize.Comma,
		"count":    report.Count,
		"decimal":  report.Decimal,
		"percent":  report.Percent,
		"date":     report.Date,
		"corr":     report.CorrelationCell,
		"year": func(y int) string {
			if y == 0 {
				return analytics.NotAvailable
			}
			return fmt.Sprint(y)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "dashboard.html", "videos.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		store:      store,
		cfg:        cfg,
		newFetcher: newFetcher,
		pages:      pages,
		mux:        http.NewServeMux(),
		now:        time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return logging.Middleware(s.mux)
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Routes
	s.mux.HandleFunc("GET /{$}", s.withSession(s.handleIndex))
	s.mux.HandleFunc("POST /session/key", s.withSession(s.handleSetKey))
	s.mux.HandleFunc("POST /session/clear", s.withSession(s.handleClear))
	s.mux.HandleFunc("POST /search", s.withSession(s.handleSearch))
	s.mux.HandleFunc("POST /channels/predefined", s.withSession(s.handlePredefined))
	s.mux.HandleFunc("POST /channels/analyze", s.withSession(s.handleAnalyzeChannels))
	s.mux.HandleFunc("GET /dashboard", s.withSession(s.handleDashboard))
	s.mux.HandleFunc("GET /videos", s.withSession(s.handleVideos))
	s.mux.HandleFunc("POST /videos/analyze", s.withSession(s.handleAnalyzeVideos))
	s.mux.HandleFunc("GET /videos/export.csv", s.withSession(s.handleExportCSV))
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// A template error must not leave a half-written page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the configured port.
func Serve(store Store, cfg *config.Config) error {
	srv, err := New(store, cfg, ClientFactory(cfg.YouTube))
	if err != nil {
		return err
	}

	telemetry.RegisterSessionGauge(func() float64 {
		n, err := store.CountSessions(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Info().Msgf("Server listening on http://%s", addr)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpSrv.ListenAndServe()
}
