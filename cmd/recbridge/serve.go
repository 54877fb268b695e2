package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/recbridge"
	"github.com/spf13/cobra"
)

// ServeFlags holds serve command flags
type ServeFlags struct {
	ConfigPath string
	WebUIDir   string
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.yaml]",
		Short: "Start the recbridge daemon",
		Long: `Start the recbridge daemon, serving the unified aggregation API.
Backend instances are loaded from the YAML config file and instance
changes made through the API are written back to it.

Examples:
  recbridge serve --config=config.yaml
  recbridge serve config.yaml
  recbridge serve config.yaml --webui=./webui/dist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}

	cmd.Flags().StringVar(&serveFlags.WebUIDir, "webui", "", "serve a web UI from this directory")

	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.yaml or provide as argument")
	}

	cfg, err := recbridge.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := recbridge.NewLogger(cfg)
	slog.SetDefault(log)

	svc := recbridge.NewFromConfig(cfg, log)
	authSvc := recbridge.NewAuth(cfg)

	opts := recbridge.ServerOptions{
		BasePath: cfg.Server.BasePath,
		WebUIDir: flags.WebUIDir,
	}
	if opts.WebUIDir == "" {
		opts.WebUIDir = cfg.Server.WebUI
	}

	if cfg.Metrics.Enabled {
		if err := recbridge.RegisterMetricsDefault(); err != nil {
			log.Warn("failed to register metrics", "error", err)
		}
		if cfg.Metrics.Listen != "" {
			// Dedicated metrics listener, kept off the API port.
			go func() {
				if err := recbridge.ServeMetrics(cfg.Metrics.Listen); err != nil {
					log.Error("metrics server error", "error", err)
				}
			}()
		} else {
			opts.Metrics = true
		}
	}

	protocol := "http"
	var srv *http.Server
	if cfg.Server.TLS != nil && cfg.Server.TLS.Enabled {
		protocol = "https"
		srv, err = recbridge.NewTLSServer(cfg.Server, opts, svc, authSvc)
		if err != nil {
			return fmt.Errorf("failed to create HTTPS server: %w", err)
		}
	} else {
		srv, err = recbridge.NewHTTPServer(cfg.Server.Listen, opts, svc, authSvc)
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	log.Info("recbridge server started",
		"protocol", protocol,
		"listen", cfg.Server.Listen,
		"base_path", cfg.Server.BasePath,
		"instances", len(cfg.Instances),
		"auth", authSvc.Enabled())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
