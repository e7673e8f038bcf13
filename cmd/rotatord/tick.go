package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rotatord/rotatord/internal/audit"
	"github.com/rotatord/rotatord/internal/clock"
	"github.com/rotatord/rotatord/internal/engine"
	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/state"
	"github.com/rotatord/rotatord/internal/trigger"
)

var auditDSN string

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run exactly one evaluation pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer log.Sync()

		cs := newConfigStore()
		ss := state.New(statePath)

		var sink *audit.Sink
		if auditDSN != "" {
			s, err := audit.Open(auditDSN)
			if err != nil {
				log.Warn("audit sink unavailable, continuing without it", zap.Error(err))
			} else {
				sink = s
				defer sink.Close()
			}
		}

		trig := trigger.New(nil, ss, log)
		eng := engine.New(cs, ss, clock.Real{}, trig, sink, log)

		if err := eng.Tick(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitCodeFor(err))
		}
		return nil
	},
}

func init() {
	tickCmd.Flags().StringVar(&auditDSN, "audit-dsn", "", "optional Postgres DSN for the rotation-history audit sink")
}

// exitCodeFor maps a fatal-at-load error to spec §6.3's exit codes.
func exitCodeFor(err error) int {
	var fe *faults.Error
	if !errors.As(err, &fe) {
		return 1
	}
	switch fe.Kind {
	case faults.KindConfig:
		return 2
	case faults.KindState:
		return 3
	case faults.KindAuth:
		return 4
	default:
		return 1
	}
}
