package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/config"
	scraperlog "github.com/nao1215/webscraper/internal/log"
	"github.com/nao1215/webscraper/internal/scraper"
)

// NewRootCmd creates the root command for webscraper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webscraper",
		Short: "Crawl websites and extract structured data",
		Long: `webscraper crawls websites breadth-first and extracts structured data
from every page: page summaries, RAG chunks, readable articles or Markdown.

Settings are read from SCRAPER_* environment variables (and a .env file),
then from command line flags. Per-site cookies, headers and URL patterns
live in .webscraper.yaml (see "webscraper init").`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable debug logging (same as --log-level DEBUG)")
	flags.String("log-level", "", "Log level: DEBUG, INFO, WARNING, ERROR or CRITICAL (default from SCRAPER_LOG_LEVEL)")
	flags.Bool("log-json", false, "Write logs as JSON lines")
	flags.StringSlice("env-file", nil, "Load environment variables from these files (default .env)")
	flags.StringP("config", "c", "", "Site configuration file (default: .webscraper.yaml in current or home directory)")
	flags.String("output-dir", "", "Directory for saved results (default from SCRAPER_OUTPUT_DIR)")
	flags.Duration("delay", config.DefaultDelay, "Pause after each successful page fetch")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout of each HTTP request")
	flags.String("user-agent", "", "User-Agent header")
	flags.Int("rate-limit", config.DefaultMaxRequestsPerMinute, "Maximum requests per minute per fetcher")
	flags.String("proxy", "", "Proxy URL (http://, https:// or socks5://)")
	flags.Bool("respect-robots", false, "Honour robots.txt rules")

	cmd.AddCommand(NewRAGCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so crawls stop after the page in flight.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// appContext is the configuration shared by every command that fetches pages.
type appContext struct {
	cfg    *config.Config
	logger *slog.Logger
	sites  *config.File
}

// newAppContext builds the configuration from the environment and the global
// flags. Flags win over environment variables only when they were set.
func newAppContext(cmd *cobra.Command) (*appContext, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	applyFlags(cmd, cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	jsonLogs, _ := cmd.Flags().GetBool("log-json")
	logger, err := scraperlog.New(cmd.ErrOrStderr(), cfg.LogLevel, jsonLogs)
	if err != nil {
		return nil, err
	}

	sites, err := loadSiteFile(cmd)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "config", cfg.String())
	return &appContext{cfg: cfg, logger: logger, sites: sites}, nil
}

// applyFlags copies every global flag that was set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.LogLevel = strings.ToUpper(level)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.LogLevel = "DEBUG"
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("delay") {
		cfg.Delay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("rate-limit") {
		cfg.MaxRequestsPerMinute, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("proxy") {
		cfg.Proxy, _ = flags.GetString("proxy")
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if flags.Changed("db-dir") {
		cfg.DBDir, _ = flags.GetString("db-dir")
	}
	if flags.Changed("workers") {
		cfg.MaxWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize, _ = flags.GetInt("chunk-size")
	}
}

// loadSiteFile loads the site configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty file is used when none is found.
func loadSiteFile(cmd *cobra.Command) (*config.File, error) {
	explicit, _ := cmd.Flags().GetString("config")

	path := config.FindConfigFile(explicit)
	if path == "" {
		if explicit != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	sites, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return sites, nil
}

// siteOptions returns the fetcher options carrying a site's cookie and headers.
func siteOptions(site config.SiteConfig) []scraper.Option {
	var opts []scraper.Option
	if site.Cookie != "" {
		opts = append(opts, scraper.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, scraper.WithHeaders(site.Headers))
	}
	return opts
}

// errInvalidStartURL is returned for start URLs without an http(s) scheme.
var errInvalidStartURL = errors.New("URL must start with http:// or https://")

func checkStartURL(rawURL string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("%w: %s", errInvalidStartURL, rawURL)
	}
	return nil
}
