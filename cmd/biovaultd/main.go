// Command biovaultd is the BioVault Desktop background daemon: it owns
// the active profile's home lock, the flow-run supervisor and its
// reconciler, the multiparty session manager, and the command bridge's
// listeners.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/openmined/biovault-desktop/internal/bridge"
	"github.com/openmined/biovault-desktop/internal/config"
	"github.com/openmined/biovault-desktop/internal/flowrun"
	bvlog "github.com/openmined/biovault-desktop/internal/log"
	"github.com/openmined/biovault-desktop/internal/multiparty"
	"github.com/openmined/biovault-desktop/internal/profile"
	"github.com/openmined/biovault-desktop/internal/store"
	"github.com/openmined/biovault-desktop/internal/telemetry"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		wsAddr             = flag.String("ws-addr", ":3333", "command bridge WebSocket listen address")
		httpAddr           = flag.String("http-addr", ":3334", "command bridge HTTP listen address")
		showVersion        = flag.Bool("version", false, "show version information")
		profileSelector    = flag.String("profile", "", "select a profile by id or email at boot (spec §4.1)")
		profileIDSelector  = flag.String("profile-id", "", "select a profile by id at boot")
		waitForProfileLock = flag.Bool("wait-for-profile-lock", false, "retry acquiring the profile home lock for up to ~8s before giving up")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("biovaultd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	logger := bvlog.New(bvlog.FromEnv())
	slog.SetDefault(logger)

	settings, err := config.LoadSettings()
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	registry, err := profile.Open()
	if err != nil {
		logger.Error("failed to open profile registry", "error", err)
		os.Exit(1)
	}

	selector := *profileSelector
	if selector == "" {
		selector = *profileIDSelector
	}
	if selector == "" {
		selector = os.Getenv("BIOVAULT_PROFILE_ID")
	}

	waitFor := time.Duration(0)
	if *waitForProfileLock {
		waitFor = 8 * time.Second
	}

	var home string
	switch {
	case selector != "":
		p, err := registry.Select(selector, waitFor)
		if err != nil {
			// Scenario S1: a second process racing for the same profile
			// without --wait-for-profile-lock loses the race, flags the
			// conflict for its own picker UI, and exits cleanly rather
			// than contending with the process that already owns the
			// home lock.
			os.Setenv("BIOVAULT_PROFILE_LOCK_CONFLICT", "1")
			logger.Warn("profile home lock unavailable, deferring to the owning process", "selector", selector, "error", err)
			os.Exit(0)
		}
		home = p.Home
	case registry.Current() != nil:
		home = registry.Current().Home
	default:
		home, _ = os.UserHomeDir()
	}

	db, err := store.Open(filepath.Join(home, "biovault.db"))
	if err != nil {
		logger.Error("failed to open profile database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	prov, err := telemetry.New("biovault-desktop", version)
	if err != nil {
		logger.Error("failed to start telemetry", "error", err)
		os.Exit(1)
	}
	defer prov.Shutdown(context.Background())

	token, err := config.BridgeToken()
	if err != nil {
		logger.Warn("failed to resolve bridge token, auth disabled", "error", err)
	}

	audit, err := bridge.NewAuditLog(home)
	if err != nil {
		logger.Error("failed to open bridge audit log", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supervisor := flowrun.NewSupervisor(logger, 4, nil)
	go supervisor.RunReconciler(ctx, settings.ReconcileInterval)

	mpManager := multiparty.NewManager(nil)

	reg := bridge.NewRegistry()
	registerCommands(reg, registry, db, supervisor, mpManager, logger)

	authz := bridge.NewAuthorizer(settings.Bridge.Disabled, settings.Bridge.BlockedCommands)
	auth := bridge.NewAuthenticator(token)
	if jwtSecret := os.Getenv("AGENT_BRIDGE_JWT_SECRET"); jwtSecret != "" {
		auth = auth.WithJWTSecret([]byte(jwtSecret))
	}
	dispatcher := bridge.NewDispatcher(reg, authz, auth, audit, logger)

	manager := bridge.NewManager(logger)

	if err := manager.Start(ctx, bridge.Config{
		WSAddr:     *wsAddr,
		HTTPAddr:   *httpAddr,
		Dispatcher: dispatcher,
		Authz:      authz,
		Auth:       auth,
		Registry:   reg,
	}); err != nil {
		logger.Error("failed to start command bridge", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("biovaultd started", "ws_addr", *wsAddr, "http_addr", *httpAddr, "home", home)

	<-sigCh
	logger.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("error during bridge shutdown", "error", err)
	}
}
