package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rotatord/rotatord/internal/config"
	"github.com/rotatord/rotatord/internal/logging"
	"github.com/rotatord/rotatord/internal/secretresolve"

	_ "github.com/rotatord/rotatord/internal/provider" // registers cloudflare, route53
)

var (
	configPath string
	statePath  string
	logDir     string
	vaultTTL   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rotatord",
	Short: "DNS A/AAAA record rotation daemon",
	Long: `rotatord rotates DNS A/AAAA records across a configured IP pool on a
fixed cadence, using one of several pure rotation algorithms per job.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration document")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "path to the rotation-state file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for rotating log files (stdout only if unset)")
	rootCmd.PersistentFlags().DurationVar(&vaultTTL, "vault-cache-ttl", 5*time.Minute, "how long a resolved vault secret is cached")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(tickCmd, runCmd, verifyTokenCmd, validateConfigCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// newConfigStore builds the Config Store with a Vault client configured
// from the ambient VAULT_* environment (Vault's defaults apply where those
// are unset); if that client cannot be built, "vault:" tokens fail to
// resolve. A missing or misconfigured Vault only matters if a token
// actually references one.
func newConfigStore() *config.Store {
	var resolver *secretresolve.Resolver
	if vc, err := secretresolve.NewVaultClient(vaultTTL); err == nil {
		resolver = secretresolve.New(vc)
	} else {
		resolver = secretresolve.New(nil)
	}
	return config.New(configPath, resolver)
}

func newLogger() *zap.Logger {
	log, err := logging.New(logging.Config{Dir: logDir, Console: logDir == ""})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rotatord: failed to init logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}
