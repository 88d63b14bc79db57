package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/systemshift/gitlite/internal/config"
	"github.com/systemshift/gitlite/internal/repo"
)

var (
	workDir string
	verbose bool

	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
)

var rootCmd = &cobra.Command{
	Use:   "gitlite",
	Short: "gitlite - a small local version-control system",
	Long: `gitlite tracks snapshots of a directory in a content-addressed store,
with branches, three-way merges, and push/fetch/pull between repositories
on the local filesystem.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel.Set(slog.LevelWarn)
		if verbose {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "run as if started in this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// openRepo opens the repository containing workDir and applies its log level
// unless --verbose was given.
func openRepo() (*repo.Repository, error) {
	r, err := repo.Open(workDir, repo.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !verbose {
		level, err := config.ParseLevel(r.Config.Log.Level)
		if err != nil {
			logger.Warn("ignoring log level from config", "error", err)
		} else {
			logLevel.Set(level)
		}
	}
	return r, nil
}
