package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/github-issue-mirror/config"
	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/logger"
	"github.com/wesm/github-issue-mirror/internal/sync"
)

var (
	configPath string
	logLevel   string
	logFile    string

	syncAll     bool
	reportSince string
)

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror GitHub issues and pull requests into SQLite",
	Long: fmt.Sprintf(`Incrementally mirrors issues, pull requests, comments and labels of GitHub
repositories into a local SQLite database.

The GitHub token can be provided via the %s environment variable.`, config.EnvGithubToken),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != "" {
			if err := logger.SetLogFile(logFile); err != nil {
				return err
			}
		}
		if logLevel == "" {
			return nil
		}
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file if it doesn't exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
		logger.Info("Created default configuration at %s", configPath)
		return nil
	},
}

var addRepoCmd = &cobra.Command{
	Use:   "add-repo <owner/name>",
	Short: "Add a repository to the configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := sync.ParseRepositoryString(args[0]); err != nil {
			return err
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if !cfg.AddRepository(args[0]) {
			logger.Info("Repository %s already exists in configuration", args[0])
			return nil
		}
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return err
		}
		logger.Info("Added repository %s to configuration", args[0])
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [owner/name...]",
	Short: "Sync the given repositories, or every configured one with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		repos := args
		if syncAll {
			repos = append(repos, cfg.Repositories...)
		}
		if len(repos) == 0 {
			return fmt.Errorf("no repositories given; pass owner/name or use --all")
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		logRateLimit(ctx, cfg)
		syncer := newSyncer(cfg, database)

		start := time.Now()
		failed := 0
		for _, repoStr := range repos {
			owner, name, err := sync.ParseRepositoryString(repoStr)
			if err != nil {
				logger.Warn("Skipping invalid repository %s: %v", repoStr, err)
				failed++
				continue
			}
			if _, err := syncer.SyncRepository(ctx, owner, name); err != nil {
				logger.Error("Failed to sync repository %s/%s: %v", owner, name, err)
				failed++
				continue
			}
		}

		logger.Info("Sync completed in %v", time.Since(start).Round(time.Millisecond))
		if failed > 0 {
			return fmt.Errorf("%d of %d repositories failed to sync", failed, len(repos))
		}
		return nil
	},
}

var syncOrgCmd = &cobra.Command{
	Use:   "sync-org [org...]",
	Short: "Sync every repository of the given or configured organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		orgs := args
		if len(orgs) == 0 {
			orgs = cfg.Organizations
		}
		if len(orgs) == 0 {
			return fmt.Errorf("no organizations given or configured")
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		logRateLimit(ctx, cfg)
		syncer := newSyncer(cfg, database)

		var errs []string
		for _, org := range orgs {
			if _, err := syncer.SyncOrganization(ctx, org); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("organization sync failed: %s", strings.Join(errs, "; "))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored cursors and the remaining API budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s (%s)\n\n", cfg.DatabasePath, cfg.DatabaseDriver)

		for _, repoStr := range cfg.Repositories {
			owner, name, err := sync.ParseRepositoryString(repoStr)
			if err != nil {
				fmt.Fprintf(out, "%-40s invalid: %v\n", repoStr, err)
				continue
			}
			count, err := database.CountItems(ctx, owner, name)
			if err != nil {
				return err
			}
			items, itemsOK, err := database.MaxItemTimestampForRepo(ctx, owner, name)
			if err != nil {
				return err
			}
			comments, commentsOK, err := database.MaxCommentTimestampForRepo(ctx, owner, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-40s %6d items  items since %-22s comments since %s\n",
				repoStr, count, cursorLabel(items, itemsOK), cursorLabel(comments, commentsOK))
		}

		for _, org := range cfg.Organizations {
			cursor, ok, err := database.MaxItemTimestampForOrg(ctx, org)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-40s latest activity %s\n", org+"/*", cursorLabel(cursor, ok))
		}

		if cfg.GitHubToken == "" {
			return nil
		}
		limit, err := api.NewGraphQLClient(cfg.GitHubToken).RateLimit(ctx)
		if err != nil {
			logger.Warn("Could not read rate limit: %v", err)
			return nil
		}
		fmt.Fprintf(out, "\nAPI budget: %d/%d remaining, resets %s\n",
			limit.Remaining, limit.Limit, limit.ResetAt.Local().Format(time.Kitchen))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <owner/name>",
	Short: "List stored items updated since a point in time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := sync.ParseRepositoryString(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		since := reportSince
		if since == "" {
			since = time.Now().AddDate(0, 0, -7).UTC().Format(time.RFC3339)
		}

		ctx := cmd.Context()
		items, err := database.ItemsUpdatedSince(ctx, owner, name, since)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d items in %s updated since %s\n\n", len(items), args[0], since)
		for _, item := range items {
			kind := "issue"
			if item.PullRequestURL != nil {
				kind = "pr"
				if item.MergedAt != nil {
					kind = "merged"
				}
			}
			fmt.Fprintf(out, "#%-6d %-7s %-8s %s\n", item.Number, kind, item.State, item.Title)

			labels, err := database.LabelsForItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if len(labels) > 0 {
				fmt.Fprintf(out, "         labels: %s\n", strings.Join(labels, ", "))
			}

			if item.PullRequestURL == nil {
				continue
			}
			files, err := database.PullRequestFiles(ctx, item.ID)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(out, "         %-9s +%d -%d %s\n", f.Status, f.Additions, f.Deletions, f.Filename)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")

	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync all repositories in the configuration")
	reportCmd.Flags().StringVar(&reportSince, "since", "", "Only show items updated at or after this time (default: 7 days ago)")

	rootCmd.AddCommand(initCmd, addRepoCmd, syncCmd, syncOrgCmd, statusCmd, reportCmd)
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabaseDriver, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

func newSyncer(cfg *config.Config, database *db.DB) *sync.Syncer {
	if logLevel == "" && cfg.LogLevel != "" {
		if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}
	syncer := sync.New(database, api.NewGitHubClient(cfg.GitHubToken))
	syncer.SetFetchFiles(cfg.FetchFiles)
	return syncer
}

func logRateLimit(ctx context.Context, cfg *config.Config) {
	if cfg.GitHubToken == "" {
		logger.Warn("No GitHub token configured; unauthenticated requests are heavily rate limited")
		return
	}
	limit, err := api.NewGraphQLClient(cfg.GitHubToken).RateLimit(ctx)
	if err != nil {
		logger.Debug("Could not read rate limit: %v", err)
		return
	}
	logger.Info("API budget: %d/%d remaining, resets at %s",
		limit.Remaining, limit.Limit, limit.ResetAt.Format(time.RFC3339))
}

func cursorLabel(c db.Cursor, ok bool) string {
	if !ok {
		return "(never synced)"
	}
	return string(c)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
