package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rotatord/rotatord/internal/provider"
)

var verifyAccountID string

var verifyTokenCmd = &cobra.Command{
	Use:   "verify-token",
	Short: "Check one account's provider credential and required permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer log.Sync()

		cs := newConfigStore()
		snap, err := cs.Load(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		acc, ok := snap.Accounts[verifyAccountID]
		if !ok {
			fmt.Fprintf(os.Stderr, "rotatord: unknown account %q\n", verifyAccountID)
			os.Exit(2)
		}

		client, err := provider.New(acc.Account, acc.ResolvedToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(4)
		}

		valid, missing, err := client.VerifyToken(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(4)
		}
		if !valid {
			fmt.Fprintf(os.Stderr, "rotatord: token for account %q is invalid or missing permissions: %v\n", verifyAccountID, missing)
			os.Exit(4)
		}

		fmt.Printf("token for account %q is valid\n", verifyAccountID)
		return nil
	},
}

func init() {
	verifyTokenCmd.Flags().StringVar(&verifyAccountID, "account", "", "account id to verify")
	verifyTokenCmd.MarkFlagRequired("account")
}
