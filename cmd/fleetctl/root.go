package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JHMR18/truck-drive/internal/api"
	"github.com/JHMR18/truck-drive/internal/config"
	"github.com/JHMR18/truck-drive/internal/session"
	"github.com/JHMR18/truck-drive/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	Version = "0.1.0"
	appName = "fleetctl"
)

// app holds the wired client stack shared by all commands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	session *session.Manager
	auth    *api.AuthClient

	// authed carries the bearer token from the session manager
	authed *api.Client

	jsonOut bool
}

// setup loads configuration, opens the local state store and restores
// any persisted session. Every command goes through this.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.IsDevelopment() {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.store, err = store.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}

	base := api.NewClient(cfg.BaseURL, nil, cfg.HTTP, a.logger)
	a.auth = api.NewAuthClient(base)

	a.session = session.NewManager(a.auth, a.store, a.logger,
		session.WithRenewalMargin(cfg.Session.RenewalMargin),
	)
	if err := a.session.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	// Resource requests carry the session's bearer token
	httpClient := oauth2.NewClient(ctx, a.session)
	httpClient.Timeout = cfg.HTTP.Timeout
	a.authed = api.NewClient(cfg.BaseURL, httpClient, cfg.HTTP, a.logger)

	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// requireAuth fails fast when no session is active, before a command
// fires requests that would all come back 401
func (a *app) requireAuth() error {
	if a.session.State() != session.StateAuthenticated {
		return fmt.Errorf("not signed in, run '%s login' first", appName)
	}
	return nil
}

// output prints v as indented JSON when --json is set, otherwise calls
// the plain-text printer
func (a *app) output(v interface{}, plain func()) error {
	if a.jsonOut {
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}
	plain()
	return nil
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Fleet dispatch client",
		Long: `Fleetctl is the terminal client for the fleet dispatch backend.

It keeps an authenticated session alive across invocations (tokens are
encrypted at rest and renewed before expiry), manages the vehicle,
mission, driver, notification and maintenance collections, and runs the
on-vehicle location reporting agent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		authCmd(a),
		vehiclesCmd(a),
		missionsCmd(a),
		driversCmd(a),
		notificationsCmd(a),
		maintenanceCmd(a),
		agentCmd(a),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no session, skip the wiring
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	}
}
