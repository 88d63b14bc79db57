package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <branch> | -- <file> | <commit> -- <file>",
	Short: "Switch branches or restore a file",
	Long: `checkout <branch>           switch the working tree and HEAD to a branch
checkout -- <file>          restore a file from the current commit
checkout <commit> -- <file> restore a file from a commit (hash prefix allowed)

A remote-tracking name such as origin/master detaches HEAD at its tip.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		switch dash := cmd.ArgsLenAtDash(); {
		case dash == -1 && len(args) == 1:
			return r.CheckoutBranch(args[0])
		case dash == 0 && len(args) == 1:
			return r.CheckoutFile(args[0])
		case dash == 1 && len(args) == 2:
			return r.CheckoutFileInCommit(args[0], args[1])
		default:
			return fmt.Errorf("checkout: incorrect operands")
		}
	},
}

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "Create a branch at HEAD, or list branches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return r.Branch(args[0])
		}
		branches, err := r.ListBranches()
		if err != nil {
			return err
		}
		tracking, err := r.ListTracking()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, b := range branches {
			mark := " "
			if b.Current {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s %s\n", mark, b.Name, b.Tip.Short())
		}
		for _, b := range tracking {
			fmt.Fprintf(out, "  remotes/%s %s\n", b.Name, b.Tip.Short())
		}
		return nil
	},
}

var rmBranchCmd = &cobra.Command{
	Use:   "rm-branch <name>",
	Short: "Delete a branch pointer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		return r.RemoveBranch(args[0])
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <commit>",
	Short: "Check out a commit and move the current branch to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		return r.Reset(args[0])
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Merge a branch or remote-tracking ref into the current branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		res, err := r.Merge(args[0])
		if err != nil {
			return err
		}
		formatMerge(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd, branchCmd, rmBranchCmd, resetCmd, mergeCmd)
}
