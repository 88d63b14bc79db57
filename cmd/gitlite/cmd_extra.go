package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	gitlitefuse "github.com/systemshift/gitlite/internal/fuse"
	"github.com/systemshift/gitlite/internal/gitimport"
)

var (
	mountDebug   bool
	importBranch string
	importInto   string
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount a read-only view of branches and commits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		mountpoint := args[0]
		if err := os.MkdirAll(mountpoint, 0755); err != nil {
			return fmt.Errorf("create mountpoint: %w", err)
		}

		server, err := gitlitefuse.MountFS(mountpoint, r, mountDebug)
		if err != nil {
			return fmt.Errorf("mount %s: %w", mountpoint, err)
		}

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-done
			logger.Info("unmounting", "mountpoint", mountpoint)
			if err := server.Unmount(); err != nil {
				logger.Error("unmount failed", "error", err)
			}
		}()

		logger.Info("mounted", "mountpoint", mountpoint, "pid", os.Getpid())
		server.Wait()
		return nil
	},
}

var importGitCmd = &cobra.Command{
	Use:   "import-git <git-dir>",
	Short: "Replay the first-parent history of a git branch as a new branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		n, err := gitimport.Import(r, args[0], importBranch, importInto)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d commits into %s\n", n, importInto)
		return nil
	},
}

func init() {
	mountCmd.Flags().BoolVar(&mountDebug, "debug", false, "log every FUSE request")
	importGitCmd.Flags().StringVar(&importBranch, "branch", "", "git branch to import (default: git HEAD)")
	importGitCmd.Flags().StringVar(&importInto, "into", "git-import", "gitlite branch to create")

	rootCmd.AddCommand(mountCmd, importGitCmd)
}
