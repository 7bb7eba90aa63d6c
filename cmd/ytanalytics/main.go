package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/ytanalytics/internal/analytics"
	"github.com/TobiSchelling/ytanalytics/internal/config"
	"github.com/TobiSchelling/ytanalytics/internal/database"
	"github.com/TobiSchelling/ytanalytics/internal/logging"
	"github.com/TobiSchelling/ytanalytics/internal/pipeline"
	"github.com/TobiSchelling/ytanalytics/internal/report"
	"github.com/TobiSchelling/ytanalytics/internal/server"
	"github.com/TobiSchelling/ytanalytics/internal/session"
	"github.com/TobiSchelling/ytanalytics/internal/youtube"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	apiKey     string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ytanalytics",
	Short:   "YouTube channel and video analytics",
	Long:    "ytanalytics queries the YouTube Data API, computes engagement metrics and serves them as a local dashboard or terminal reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logging.Init("info", logging.FormatConsole)
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.Init(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "YouTube Data API key (overrides the configured environment variable)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predefinedCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(recentCmd)
}

// loadConfig reads the config file. Without an explicit --config, a missing
// file falls back to the embedded defaults.
func loadConfig() (*config.Config, error) {
	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		return config.Default(), nil
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ytanalytics", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in $XDG_CONFIG_HOME/ytanalytics/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the API key variable and the predefined channel list.")
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		db, err := database.Open()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- predefined command ---

var predefinedCmd = &cobra.Command{
	Use:   "predefined",
	Short: "List the predefined channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		var b strings.Builder
		b.WriteString("# Predefined Channels\n\n| Channel | ID |\n|---|---|\n")
		for _, c := range cfg.Channels.Predefined {
			fmt.Fprintf(&b, "| %s | `%s` |\n", c.Name, c.ID)
		}
		return report.Print(cmd.OutOrStdout(), b.String())
	},
}

// --- search command ---

var searchMax int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for channels",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(nil)
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("max") {
			searchMax = cfg.YouTube.SearchMaxResults
		}
		query := strings.Join(args, " ")
		st := session.New("cli")
		if res := pipeline.New(client).Search(cmd.Context(), st, query, searchMax); res.Err != nil {
			return res.Err
		}
		return report.Print(cmd.OutOrStdout(), report.SearchResults(query, st.SearchedChannels))
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 20, "Maximum number of results (1-50)")
}

// --- channels command ---

var usePredefined bool

var channelsCmd = &cobra.Command{
	Use:   "channels [id-or-name...]",
	Short: "Compare channel statistics",
	Long:  "Fetch statistics for the given channels and print a summary. Arguments may be channel ids or names from the predefined list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := resolveChannels(args)
		if usePredefined {
			ids = append(ids, cfg.Channels.ChannelIDs()...)
		}
		if len(ids) == 0 {
			return errors.New("give channel ids or use --predefined")
		}

		client, err := newClient(nil)
		if err != nil {
			return err
		}

		st := session.New("cli")
		res := pipeline.New(client).LoadChannels(cmd.Context(), st, ids)
		if res.Err != nil {
			return res.Err
		}
		log.Info().Msg(res.Summary)

		md := report.ChannelReport(st.ChannelTable)
		if len(st.ChannelTable) == 1 {
			md = report.ChannelDetail(st.ChannelTable[0])
		}
		return report.Print(cmd.OutOrStdout(), md)
	},
}

func init() {
	channelsCmd.Flags().BoolVar(&usePredefined, "predefined", false, "Include the predefined channels")
}

// --- videos command ---

var (
	videoCount int
	csvPath    string
)

var videosCmd = &cobra.Command{
	Use:   "videos <channel>",
	Short: "Analyze a channel's recent videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("count") {
			videoCount = cfg.YouTube.VideoCount
		}
		count := pipeline.ClampVideoCount(videoCount)

		bar := newProgressBar(count)
		client, err := newClient(func(collected, target int) { bar.Set(collected) })
		if err != nil {
			return err
		}

		channelID := resolveChannels(args)[0]
		st := session.New("cli")
		result := pipeline.New(client).Run(cmd.Context(), st, channelID, count)
		bar.Finish()

		for _, step := range result.Steps {
			if step.Err != nil {
				return step.Err
			}
			log.Info().Str("step", step.Name).Msg(step.Summary)
		}

		if csvPath != "" {
			if err := writeCSV(csvPath, st.VideoTable); err != nil {
				return err
			}
			log.Info().Str("path", csvPath).Msg("CSV written")
		}
		return report.Print(cmd.OutOrStdout(), report.VideoReport(st.VideoChannelTitle, st.VideoTable))
	},
}

func init() {
	videosCmd.Flags().IntVarP(&videoCount, "count", "n", pipeline.DefaultVideoCount, "Number of videos to analyze (10-100)")
	videosCmd.Flags().StringVar(&csvPath, "csv", "", "Also write the video table to this CSV file")
}

// --- recent command ---

var recentCmd = &cobra.Command{
	Use:   "recent <channel>",
	Short: "Show recent uploads from the public feed (no API key needed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channelID := resolveChannels(args)[0]
		reader := youtube.NewFeedReader(cfg.YouTube.FeedURL)

		records, err := reader.RecentUploads(cmd.Context(), channelID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No recent uploads found.")
			return nil
		}

		title := cfg.Channels.NameByID(channelID)
		if title == config.UnknownChannel {
			title = channelID
		}
		table := analytics.ProcessVideoData(records, time.Now())
		return report.Print(cmd.OutOrStdout(), report.VideoReport(title+" (recent uploads)", table))
	},
}

func newClient(onPage func(collected, target int)) (*youtube.Client, error) {
	key := cfg.APIKey(apiKey)
	if key == "" {
		return nil, fmt.Errorf("no API key: pass --api-key or set %s", cfg.YouTube.APIKeyEnv)
	}

	opts := []youtube.Option{
		youtube.WithBaseURL(cfg.YouTube.BaseURL),
		youtube.WithHTTPClient(&http.Client{Timeout: cfg.YouTube.Timeout}),
		youtube.WithRateLimit(cfg.YouTube.RequestsPerSecond),
	}
	if onPage != nil {
		opts = append(opts, youtube.WithProgress(onPage))
	}
	return youtube.NewClient(key, opts...)
}

// resolveChannels maps predefined channel names to ids. Anything that does
// not match a predefined name is passed through as an id.
func resolveChannels(args []string) []string {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		if looksLikeChannelID(arg) {
			ids = append(ids, arg)
			continue
		}
		if id, ok := cfg.Channels.SearchByName(arg); ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, arg)
	}
	return ids
}

func looksLikeChannelID(s string) bool {
	return len(s) == 24 && strings.HasPrefix(s, "UC")
}

func newProgressBar(total int) *progressbar.ProgressBar {
	if !report.IsTerminal(os.Stderr) {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Fetching videos"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func writeCSV(path string, table analytics.VideoTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV: %w", err)
	}
	if err := report.WriteVideoCSV(f, table); err != nil {
		f.Close()
		return fmt.Errorf("writing CSV: %w", err)
	}
	return f.Close()
}
