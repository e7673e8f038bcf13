package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the configuration document without making provider calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs := newConfigStore()
		snap, err := cs.Load(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("config valid: %d account(s), %d job(s), %d trigger(s)\n",
			len(snap.Accounts), len(snap.Jobs), len(snap.Triggers))
		return nil
	},
}
