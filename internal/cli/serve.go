package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpadapter "github.com/aretw0/maquette/internal/adapters/http"
	"github.com/aretw0/maquette/internal/adapters/process"
	"github.com/aretw0/maquette/internal/adapters/scene"
	"github.com/aretw0/maquette/internal/channel"
	"github.com/aretw0/maquette/internal/resolver"
	"github.com/aretw0/maquette/pkg/ports"
)

// ServeOptions contains all the configuration for the serve command.
type ServeOptions struct {
	ConfigPath string
	Port       int
	Sim        bool
	HostCmd    string
	HostArgs   []string
	Metrics    bool
	Debug      bool
}

// RunServe starts the host bridge: an execution surface wrapped in the
// command channel, exposed over HTTP for remote agents.
func RunServe(opts ServeOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	logger := createLogger(opts.Debug)

	var surface ports.Surface
	switch {
	case opts.HostCmd != "":
		surface = process.New(opts.HostCmd, process.WithArgs(opts.HostArgs...))
	case opts.Sim:
		surface = scene.New(scene.WithCamera())
	default:
		return fmt.Errorf("either --sim or a host command is required")
	}

	rules := resolver.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = resolver.LoadRules(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("failed to load resolution rules: %w", err)
		}
	}
	res := resolver.New(rules)

	channelOpts := []channel.Option{
		channel.WithResolver(res),
		channel.WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		channelOpts = append(channelOpts, channel.WithTimeout(time.Duration(cfg.Timeout)))
	}
	ch := channel.New(surface, channelOpts...)

	serverOpts := []httpadapter.Option{
		httpadapter.WithContextProbe(surface, res),
		httpadapter.WithLogger(logger),
	}
	if opts.Metrics {
		serverOpts = append(serverOpts, httpadapter.WithMetricsHandler(promhttp.Handler()))
	}

	port := opts.Port
	if port == 0 {
		port = httpadapter.DefaultPort
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: httpadapter.NewHandler(ch, serverOpts...),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Host bridge listening", "address", httpServer.Addr, "sim", opts.HostCmd == "")
		fmt.Printf(">>> Host bridge listening on %s\n", httpServer.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down bridge...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop bridge gracefully: %w", err)
		}
		return nil
	}
}
