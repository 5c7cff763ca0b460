package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/models"
)

var statusWatch bool

// statusCmd probes the upstream service once and prints the resulting
// connection state. With --watch it keeps probing at the monitor's
// adaptive interval, backing off while the upstream stays down.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the upstream service and report its state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := newClient(cfg)
		mon := newMonitor(client, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printStatus(mon.RunOnce(ctx))
		reportHealth(ctx, client, time.Duration(cfg.Monitor.ProbeTimeoutSec)*time.Second)

		if !statusWatch {
			return
		}

		for {
			snapshot := mon.Snapshot()
			timer := time.NewTimer(time.Duration(snapshot.NextPollIntervalMs) * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				printStatus(mon.RunOnce(ctx))
			}
		}
	},
}

func printStatus(status models.ConnectionStatus) {
	line := fmt.Sprintf("state=%s", status.State)
	if status.LatencyMs != nil {
		line += fmt.Sprintf(" latency=%dms", *status.LatencyMs)
	}
	if status.ConsecutiveFailures > 0 {
		line += fmt.Sprintf(" failures=%d", status.ConsecutiveFailures)
	}
	if status.LastError != "" {
		line += fmt.Sprintf(" error=%q", status.LastError)
	}
	fmt.Println(line)
}

// reportHealth prints the extended diagnostics when the upstream offers
// them. Failures are expected while the service is down, so they only
// show up at debug level.
func reportHealth(ctx context.Context, client *api.Client, timeout time.Duration) {
	healthCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := client.Health(healthCtx)
	if err != nil {
		logrus.Debugf("health probe failed: %v", err)
		return
	}
	fmt.Printf("upstream %s: model_loaded=%t db_connected=%t version=%s\n",
		report.Status, report.ModelLoaded, report.DBConnected, report.Version)
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "keep probing at the adaptive poll interval")
	rootCmd.AddCommand(statusCmd)
}
