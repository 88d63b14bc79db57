package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addRemoteCmd = &cobra.Command{
	Use:   "add-remote <name> <path>",
	Short: "Register another repository's .gitlite directory as a remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		return r.AddRemote(args[0], args[1])
	},
}

var rmRemoteCmd = &cobra.Command{
	Use:   "rm-remote <name>",
	Short: "Unregister a remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		return r.RemoveRemote(args[0])
	},
}

var remotesCmd = &cobra.Command{
	Use:   "remotes",
	Short: "List registered remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		remotes, err := r.ListRemotes()
		if err != nil {
			return err
		}
		for _, rm := range remotes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rm.Name, rm.Path)
		}
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <remote> <branch>",
	Short: "Send HEAD to a branch of a remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		res, err := r.Push(args[0], args[1])
		if err != nil {
			return err
		}
		if res.Old == res.New {
			fmt.Fprintln(cmd.OutOrStdout(), "Everything up-to-date.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s..%s -> %s/%s (%d commits)\n",
			res.Old.Short(), res.New.Short(), args[0], res.Branch, res.Commits)
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <remote> <branch>",
	Short: "Copy a remote branch into a remote-tracking ref",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		res, err := r.Fetch(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d objects)\n", res.Tip.Short(), res.Ref, res.Objects)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <remote> <branch>",
	Short: "Fetch a remote branch and merge it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		res, err := r.Pull(args[0], args[1])
		if err != nil {
			return err
		}
		formatMerge(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addRemoteCmd, rmRemoteCmd, remotesCmd, pushCmd, fetchCmd, pullCmd)
}
