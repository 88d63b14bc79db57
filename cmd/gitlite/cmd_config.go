package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systemshift/gitlite/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key [value]]",
	Short: "Get or set repository configuration",
	Long: "Without arguments, print every key. With a key, print its value.\n" +
		"With a key and a value, set it. Keys: " + strings.Join(config.Keys, ", ") + ".",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			for _, k := range config.Keys {
				v, err := r.Config.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s=%s\n", k, v)
			}
			return nil
		case 1:
			v, err := r.Config.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
			return nil
		default:
			if err := r.Config.Set(args[0], args[1]); err != nil {
				return err
			}
			return r.SaveConfig()
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
