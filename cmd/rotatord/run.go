package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rotatord/rotatord/internal/audit"
	"github.com/rotatord/rotatord/internal/clock"
	"github.com/rotatord/rotatord/internal/engine"
	"github.com/rotatord/rotatord/internal/state"
	"github.com/rotatord/rotatord/internal/trigger"
)

var (
	tickPeriod  time.Duration
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run as a long-lived daemon with an internal ticker",
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server failed", zap.Error(err))
				}
			}()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info("metrics server listening", zap.String("addr", metricsAddr))
		}

		log.Info("rotatord starting", zap.Duration("tick", tickPeriod))
		return eng.Run(ctx, tickPeriod)
	},
}

func init() {
	runCmd.Flags().DurationVar(&tickPeriod, "tick", 60*time.Second, "tick period")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (disabled if unset)")
	runCmd.Flags().StringVar(&auditDSN, "audit-dsn", "", "optional Postgres DSN for the rotation-history audit sink")
}
