// Command siphon runs the proxy engine standalone: a cobra command tree
// wiring configuration flags onto pkg/siphon/config and pkg/siphon/engine,
// grounded on the cobra root-command style in docker-compose/ecs/cmd/main.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/siphon/pkg/siphon/config"
	"github.com/yourusername/siphon/pkg/siphon/engine"
	"github.com/yourusername/siphon/pkg/siphon/rewrite"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serveOptions struct {
	port               uint16
	systemProxyEnabled bool
	externalProxyHost  string
	externalProxyPort  uint16
	externalProxyUser  string
	externalProxyPass  string
	bypass             []string
	filterMode         string
	filterList         []string
	metricsAddr        string
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siphon",
		Short: "siphon is an intercepting HTTP/1.x proxy engine",
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Uint16Var(&opts.port, "port", config.DefaultPort, "listen port")
	flags.BoolVar(&opts.systemProxyEnabled, "system-proxy", false, "register as the OS system proxy (handled by an external collaborator)")
	flags.StringVar(&opts.externalProxyHost, "external-proxy-host", "", "upstream proxy host")
	flags.Uint16Var(&opts.externalProxyPort, "external-proxy-port", 0, "upstream proxy port")
	flags.StringVar(&opts.externalProxyUser, "external-proxy-user", "", "upstream proxy username")
	flags.StringVar(&opts.externalProxyPass, "external-proxy-pass", "", "upstream proxy password")
	flags.StringSliceVar(&opts.bypass, "external-proxy-bypass", nil, "globs that bypass the upstream proxy")
	flags.StringVar(&opts.filterMode, "host-filter-mode", "allow", "host filter mode: allow or deny")
	flags.StringSliceVar(&opts.filterList, "host-filter-list", nil, "host filter glob list")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Default()
	cfg.Port = opts.port
	cfg.SystemProxyEnabled = opts.systemProxyEnabled
	cfg.ExternalProxy = config.ExternalProxy{
		Enabled:  opts.externalProxyHost != "",
		Host:     opts.externalProxyHost,
		Port:     opts.externalProxyPort,
		Username: opts.externalProxyUser,
		Password: opts.externalProxyPass,
		Bypass:   opts.bypass,
	}
	cfg.HostFilter = config.HostFilter{
		Mode: filterModeFromString(opts.filterMode),
		List: opts.filterList,
	}
	cfg.Rewrites = rewrite.NewList()

	store := config.NewStore(cfg)
	eng := engine.New(store, engine.WithLogger(logger))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		go serveMetrics(eng, opts.metricsAddr, logger)
	}

	logger.WithField("port", cfg.Port).Info("starting siphon")
	// Serve returns nil both on shutdown and when a port change closes the
	// listener; only the former ends the command.
	for {
		if err := eng.Serve(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func serveMetrics(eng *engine.Engine, addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(eng.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	logger.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("metrics server failed")
	}
}

func filterModeFromString(s string) config.FilterMode {
	if s == "deny" {
		return config.FilterDeny
	}
	return config.FilterAllow
}
