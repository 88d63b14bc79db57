package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logCID      bool
	logLimit    int
	searchLimit int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the first-parent history of HEAD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		entries, err := r.Log()
		if err != nil {
			return err
		}
		if logLimit > 0 && len(entries) > logLimit {
			entries = entries[:logLimit]
		}
		for _, e := range entries {
			formatEntry(cmd.OutOrStdout(), e, logCID)
		}
		return nil
	},
}

var globalLogCmd = &cobra.Command{
	Use:   "global-log",
	Short: "Show every commit ever made",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		entries, err := r.GlobalLog()
		if err != nil {
			return err
		}
		for _, e := range entries {
			formatEntry(cmd.OutOrStdout(), e, logCID)
		}
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <message>",
	Short: "Print the commits with exactly this message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		hashes, err := r.Find(args[0])
		if err != nil {
			return err
		}
		for _, h := range hashes {
			fmt.Fprintln(cmd.OutOrStdout(), h)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank commits by the query words their message contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		entries, err := r.Search(args[0], searchLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", e.Hash.Short(), firstLine(e.Commit.Message))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <commit>",
	Short: "Show a commit and the files it changed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		d, err := r.Show(args[0])
		if err != nil {
			return err
		}
		formatDetail(cmd.OutOrStdout(), d)
		return nil
	},
}

var reflogCmd = &cobra.Command{
	Use:   "reflog [ref]",
	Short: "Show the journal of branch and HEAD moves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		entries, err := r.RefLog(ref)
		if err != nil {
			return err
		}
		formatReflog(cmd.OutOrStdout(), entries)
		return nil
	},
}

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Re-hash every stored object and report corrupt ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		bad, err := r.Verify()
		if err != nil {
			return err
		}
		for _, h := range bad {
			fmt.Fprintf(cmd.OutOrStdout(), "corrupt %s\n", h)
		}
		if len(bad) > 0 {
			return fmt.Errorf("fsck: %d corrupt objects", len(bad))
		}
		return nil
	},
}

func init() {
	logCmd.Flags().BoolVar(&logCID, "cid", false, "also print each commit's CID")
	logCmd.Flags().IntVarP(&logLimit, "max-count", "n", 0, "limit the number of commits shown")
	globalLogCmd.Flags().BoolVar(&logCID, "cid", false, "also print each commit's CID")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")

	rootCmd.AddCommand(logCmd, globalLogCmd, findCmd, searchCmd, showCmd, reflogCmd, fsckCmd)
}
