package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brainzmonster/os/internal/console"
	"github.com/brainzmonster/os/internal/drafts"
)

var serveAddr string

// serveCmd runs the local console server and the connection monitor
// until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local console server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if serveAddr != "" {
			cfg.Console.Addr = serveAddr
		}

		client := newClient(cfg)

		mon := newMonitor(client, cfg)
		mon.Start()
		defer mon.Stop()

		store, err := drafts.NewStore(cfg.Drafts.Path)
		if err != nil {
			logrus.Fatalf("draft store: %v", err)
		}

		srv := console.New(console.Deps{
			Client:  client,
			Monitor: mon,
			LLM:     newLLM(client, cfg),
			Trainer: newTrainer(client, cfg),
			Drafts:  store,
		}, console.Options{
			Addr:           cfg.Console.Addr,
			AllowedOrigin:  cfg.Console.AllowedOrigin,
			PushInterval:   time.Duration(cfg.Monitor.PushIntervalSec) * time.Second,
			TimelineWindow: time.Duration(cfg.Monitor.TimelineWindowMins) * time.Minute,
			TimelinePoints: cfg.Monitor.TimelinePoints,
			DegradedAbove:  time.Duration(cfg.Monitor.DegradedAboveMs) * time.Millisecond,
			SampleLimit:    cfg.Monitor.HistoryLimit,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("server shutdown: %v", err)
			}
		}()

		logrus.Infof("console listening on %s (upstream %s)", cfg.Console.Addr, client.BaseURL())
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides the configuration file)")
	rootCmd.AddCommand(serveCmd)
}
