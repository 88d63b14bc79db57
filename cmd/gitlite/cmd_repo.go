package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/systemshift/gitlite/internal/repo"
	"github.com/systemshift/gitlite/internal/worktree"
)

var (
	statusWatch bool
	initBranch  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a repository in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []repo.Option{repo.WithLogger(logger)}
		if initBranch != "" {
			opts = append(opts, repo.WithDefaultBranch(initBranch))
		}
		_, err := repo.Init(workDir, opts...)
		return err
	},
}

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Stage files for the next commit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		for _, p := range args {
			if err := r.Add(p); err != nil {
				return err
			}
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <file>...",
	Short: "Unstage files, or stage tracked files for removal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		for _, p := range args {
			if err := r.Rm(p); err != nil {
				return err
			}
		}
		return nil
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit <message>",
	Short: "Record the staged changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		_, err = r.Commit(args[0])
		return err
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show branches, staged changes and working-tree changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		report := func() error {
			st, err := r.Status()
			if err != nil {
				return err
			}
			formatStatus(out, st)
			return nil
		}
		if err := report(); err != nil {
			return err
		}
		if !statusWatch {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return r.Tree.Watch(ctx, worktree.DefaultDebounce, func(changed []string) {
			logger.Debug("working tree changed", "paths", changed)
			fmt.Fprintln(out, "---")
			if err := report(); err != nil {
				logger.Error("status failed", "error", err)
			}
		})
	},
}

func init() {
	initCmd.Flags().StringVarP(&initBranch, "branch", "b", "", "name of the initial branch (default from config)")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "reprint status whenever the working tree changes")

	rootCmd.AddCommand(initCmd, addCmd, rmCmd, commitCmd, statusCmd)
}
