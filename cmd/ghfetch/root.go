package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/alexanderquispe/github-repo-fetcher/internal/config"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/cache"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/fetch"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/logging"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/progress"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/search"
	"github.com/alexanderquispe/github-repo-fetcher/pkg/sink"
)

var (
	flagLocation string
	flagQuery    string
	flagRepo     string

	flagOutput         string
	flagToken          string
	flagMinStars       int
	flagFilter         string
	flagIncludeForks   bool
	flagMaxUsers       int
	flagMaxRepos       int
	flagNoOrgs         bool
	flagLocationFilter string
	flagStrictSplit    bool

	flagLogLevel    string
	flagPretty      bool
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "ghfetch",
	Short: "Fetch GitHub repository metadata into CSV or NDJSON",
	Long: `ghfetch collects repository metadata through the GitHub GraphQL API.

Three modes, exactly one per run:
  --location  enumerate all accounts in a location, then their repositories
  --query     run a single repository search query
  --repo      fetch one repository by owner/name

Output is checkpointed while the run progresses: interrupting a run keeps
everything collected up to the last checkpoint.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagLocation, "location", "", "fetch repositories of all accounts in this location")
	rootCmd.Flags().StringVar(&flagQuery, "query", "", "fetch repositories matching this search query")
	rootCmd.Flags().StringVar(&flagRepo, "repo", "", "fetch a single repository (owner/name)")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file; extension selects the format (.csv, .ndjson)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "GitHub token (defaults to GITHUB_TOKEN)")
	rootCmd.Flags().IntVar(&flagMinStars, "min-stars", 1, "minimum star count")
	rootCmd.Flags().StringVar(&flagFilter, "filter", "", "extra search qualifiers (language:, license:, pushed:, ...)")
	rootCmd.Flags().BoolVar(&flagIncludeForks, "include-forks", false, "include forked repositories")
	rootCmd.Flags().IntVar(&flagMaxUsers, "max-users", 0, "stop after this many accounts (0 = no limit)")
	rootCmd.Flags().IntVar(&flagMaxRepos, "max-repos", 0, "query mode: stop after this many repositories (0 = no limit)")
	rootCmd.Flags().BoolVar(&flagNoOrgs, "no-orgs", false, "location mode: skip organizations")
	rootCmd.Flags().StringVar(&flagLocationFilter, "location-filter", "", "query mode: keep only repositories whose owner location contains this")
	rootCmd.Flags().BoolVar(&flagStrictSplit, "strict-split", false, "fail instead of truncating when a date window cannot be split further")

	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagPretty, "pretty", false, "human-readable log output")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.MarkFlagRequired("output")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	modes := 0
	for _, v := range []string{flagLocation, flagQuery, flagRepo} {
		if v != "" {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("exactly one of --location, --query, --repo is required")
	}

	token := flagToken
	if token == "" {
		token = cfg.GithubToken
	}
	if token == "" {
		return errors.New("no GitHub token: set --token or GITHUB_TOKEN")
	}

	level := flagLogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(level),
		Pretty: flagPretty || cfg.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("ghfetch")

	clientCfg := gh.DefaultConfig(token)
	clientCfg.RequestsPerSecond = cfg.RequestsPerSecond
	if cfg.RedisURL != "" {
		clientCfg.Cache = connectCache(cfg)
	}
	client, err := gh.New(clientCfg)
	if err != nil {
		return err
	}

	metricsAddr := flagMetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := sink.NewCheckpointer(flagOutput, sink.DefaultInterval, logging.NewLogger("sink"))
	// An unwritable output path aborts before any network traffic.
	if err := out.Flush(); err != nil {
		return fmt.Errorf("output path not writable: %w", err)
	}

	opts := fetch.Options{
		MinStars:     flagMinStars,
		IncludeForks: flagIncludeForks,
		Filter:       flagFilter,
		IncludeOrgs:  !flagNoOrgs,
		MaxUsers:     flagMaxUsers,
		MaxRepos:     flagMaxRepos,
	}
	if flagStrictSplit {
		opts.Truncation = search.TruncationError
	}

	fetcher := fetch.New(client, out, progress.NewConsole(os.Stderr), logger)

	var stats fetch.Stats
	var runErr error
	switch {
	case flagLocation != "":
		_, stats, runErr = fetcher.FetchByLocation(ctx, flagLocation, opts)
	case flagQuery != "":
		opts.Location = flagLocationFilter
		_, stats, runErr = fetcher.FetchByQuery(ctx, flagQuery, opts)
	default:
		owner, name, ok := strings.Cut(flagRepo, "/")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("invalid --repo %q, want owner/name", flagRepo)
		}
		_, runErr = fetcher.FetchRepo(ctx, owner, name)
		if runErr == nil {
			stats.Records = 1
		}
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		// Interrupted runs keep their checkpointed output and still
		// count as (partial) success.
		logger.Info().Int("records", stats.Records).Msg("Run interrupted, checkpointed output kept")
	default:
		// Runtime failures after the run started are reported but do not
		// discard the checkpointed output.
		logger.Error().Err(runErr).Int("records", stats.Records).Msg("Run ended with error, partial output kept")
	}

	fmt.Fprintf(os.Stderr, "wrote %d records to %s\n", stats.Records, out.Path())
	return nil
}

// connectCache wires the optional Redis response cache; a missing Redis only
// disables caching, it never blocks a run.
func connectCache(cfg *config.Config) *cache.Manager {
	logger := logging.NewLogger("cache")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisURL).Msg("Redis unreachable, running without cache")
		return nil
	}

	logger.Info().Str("addr", cfg.RedisURL).Msg("Response cache enabled")
	return cache.NewManager(rdb, cfg.CacheTTL)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger := logging.NewLogger("metrics")
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
