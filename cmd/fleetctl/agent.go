package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JHMR18/truck-drive/internal/agent"
	"github.com/JHMR18/truck-drive/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// agentCmd runs the on-vehicle reporting loop: a position provider, the
// periodic tracker, and a local admin endpoint for health and metrics.
func agentCmd(a *app) *cobra.Command {
	var lat, lng float64
	var static bool

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the location reporting agent",
		Long: `Run the on-vehicle agent. Every reporting interval it reads the
current position and posts it to the backend, tagged with the configured
vehicle and driver. Reports that cannot be delivered are spooled locally
and flushed once connectivity returns.

The position comes from the file named by FLEET_AGENT_POSITION_FILE
(maintained by an external GPS receiver), or from --lat/--lng for
stationary units.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			if a.cfg.Agent.VehicleID == "" && a.cfg.Agent.DriverID == "" {
				return fmt.Errorf("set FLEET_AGENT_VEHICLE_ID or FLEET_AGENT_DRIVER_ID so reports can be attributed")
			}

			logger := a.logger

			var provider agent.PositionProvider
			switch {
			case static:
				provider = &agent.StaticProvider{Position: agent.Position{Latitude: lat, Longitude: lng}}
			case a.cfg.Agent.PositionFile != "":
				fileProvider, err := agent.NewFileProvider(a.cfg.Agent.PositionFile, logger)
				if err != nil {
					return err
				}
				defer fileProvider.Close()
				provider = fileProvider
			default:
				return fmt.Errorf("no position source, set FLEET_AGENT_POSITION_FILE or pass --static with --lat/--lng")
			}

			tracker := agent.NewTracker(
				provider,
				api.NewLocationsClient(a.authed),
				a.store,
				a.cfg.Agent,
				logger,
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			trackerDone := make(chan error, 1)
			go func() {
				trackerDone <- tracker.Run(ctx)
			}()

			router := agent.NewAdminRouter(a.session, tracker, logger, a.cfg.IsProduction())
			server := &http.Server{
				Addr:         a.cfg.Agent.AdminAddr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				logger.Info("Starting agent admin endpoint", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Failed to start admin endpoint", zap.Error(err))
				}
			}()

			logger.Info("Agent running",
				zap.Duration("interval", a.cfg.Agent.ReportInterval),
				zap.String("vehicle", a.cfg.Agent.VehicleID),
			)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("Shutting down agent...")
			cancel()
			<-trackerDone

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Fatal("Admin endpoint forced to shutdown", zap.Error(err))
			}

			logger.Info("Agent stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&static, "static", false, "Report a fixed position instead of reading the position file")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude for --static")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude for --static")

	return cmd
}
