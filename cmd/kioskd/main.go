package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/audit"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/client"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/config"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/daemon"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/reconcile"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/state"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/supervisor"
	"github.com/pr3ti/IIP-Kiosk-Project-sub000/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"kiosk.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the gateway, reconciler, and liveness publisher"`

	Reconcile struct{} `cmd:"" help:"Run a single reconcile pass and exit"`

	Mode struct {
		Get struct{} `cmd:"" help:"Print the current operating mode"`
		Set struct {
			Mode string `arg:"" enum:"auto,manual-on,manual-off" help:"Operating mode to apply"`
		} `cmd:"" help:"Override the operating mode"`
	} `cmd:"" help:"Inspect or change the operator mode override"`

	Status struct{} `cmd:"" help:"Show the desired and observed service state"`

	Watch struct{} `cmd:"" help:"Run the kiosk-side recovery monitor"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// init and version run without a configuration file.
	switch ctx.Command() {
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", CLI.Config)
		return
	case "version":
		fmt.Printf("kioskd %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging, CLI.Verbose)

	switch ctx.Command() {
	case "serve":
		if err := runServe(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "reconcile":
		if err := runReconcile(cfg); err != nil {
			slog.Error("Reconcile failed", "error", err)
			os.Exit(1)
		}
	case "mode get":
		store := state.NewFileStore(cfg.State.SchedulePath, cfg.State.ModePath)
		fmt.Println(store.Mode())
	case "mode set <mode>":
		if err := runModeSet(cfg, CLI.Mode.Set.Mode); err != nil {
			slog.Error("Mode change failed", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runStatus(cfg); err != nil {
			slog.Error("Status failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		runWatch(cfg)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cfg *config.Config) error {
	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return d.Run(ctx)
}

func runReconcile(cfg *config.Config) error {
	store := state.NewFileStore(cfg.State.SchedulePath, cfg.State.ModePath)
	sup := supervisor.NewSystemd(cfg.Supervisor.Unit, cfg.Supervisor.Timeout)

	auditLog, err := audit.NewSQLiteLog(cfg.State.AuditPath)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	r := reconcile.New(store, store, sup, reconcile.WithAuditLog(auditLog))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res := r.Reconcile(ctx)
	fmt.Printf("mode=%s observed=%s desired=%s action=%s\n", res.Mode, res.Observed, res.Desired, res.Action)
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func runModeSet(cfg *config.Config, raw string) error {
	mode, err := state.ParseMode(raw)
	if err != nil {
		return err
	}

	store := state.NewFileStore(cfg.State.SchedulePath, cfg.State.ModePath)
	if err := store.SetMode(mode); err != nil {
		return err
	}

	fmt.Printf("mode set to %s\n", mode)
	return nil
}

func runStatus(cfg *config.Config) error {
	store := state.NewFileStore(cfg.State.SchedulePath, cfg.State.ModePath)
	sup := supervisor.NewSystemd(cfg.Supervisor.Unit, cfg.Supervisor.Timeout)
	r := reconcile.New(store, store, sup)

	mode, desired := r.DesiredState(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	observed, err := sup.IsActive(ctx)
	if err != nil {
		slog.Warn("Supervisor query failed", "error", err)
	}

	fmt.Printf("mode:     %s\n", mode)
	fmt.Printf("desired:  %s\n", desired)
	fmt.Printf("observed: %s\n", observed)
	return nil
}

func runWatch(cfg *config.Config) {
	monitor := client.New(
		client.NewHTTPFetcher(cfg.Client.GatewayURL),
		client.NewSSESubscriber(cfg.Client.GatewayURL),
		client.NewExecReloader(cfg.Client.ReloadCommand),
		client.LogPresenter{},
		client.NewFileIDStore(cfg.Client.StatePath),
		cfg.Client.HeartbeatInterval,
		cfg.Client.RetryInterval,
	)

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("Starting recovery monitor", "gateway", cfg.Client.GatewayURL)
	monitor.Run(ctx)
}
