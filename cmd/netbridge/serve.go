package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/netbridge/internal/config"
	"github.com/HerbHall/netbridge/internal/event"
	"github.com/HerbHall/netbridge/internal/host"
	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/internal/netmanager"
	"github.com/HerbHall/netbridge/internal/registry"
	"github.com/HerbHall/netbridge/internal/server"
	"github.com/HerbHall/netbridge/internal/version"
	"github.com/HerbHall/netbridge/internal/webhook"
	"github.com/HerbHall/netbridge/internal/ws"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	return cmd
}

func runServe(configPath string) error {
	// Load configuration before the logger so log level/format apply.
	viperCfg, err := server.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("netbridge starting", zap.String("version", version.Short()))
	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	var srvCfg server.Config
	if err := viperCfg.UnmarshalKey("server", &srvCfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := config.Validate(&srvCfg); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	trusted, err := server.ParseTrustedProxies(srvCfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, prober, script, err := hostCollaborators(viperCfg, logger)
	if err != nil {
		return err
	}

	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	// Both variants share one NR flag so they agree on 5G availability.
	nr := &netinfo.NRFlag{}
	var modules []plugin.Plugin
	if viperCfg.GetBool("plugins.netinfo.enabled") {
		modules = append(modules, netinfo.New(source, nr))
	}
	if viperCfg.GetBool("plugins.netmanager.enabled") {
		modules = append(modules, netmanager.New(source, prober, nr))
	}
	if viperCfg.GetBool("plugins.webhook.enabled") {
		modules = append(modules, webhook.New())
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("plugin validation: %w", err)
	}

	// The bridge subscribes before modules start so it caches their
	// initial reports.
	wsHandler := ws.NewHandler(viperCfg.GetString("bridge.token"), bus, logger.Named("ws"))
	defer wsHandler.Close()
	if viperCfg.GetString("bridge.token") == "" {
		logger.Warn("bridge token is empty, websocket clients are not authenticated", zap.String("component", "ws"))
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		return fmt.Errorf("initialize plugins: %w", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		return fmt.Errorf("start plugins: %w", err)
	}

	ready := server.ReadinessChecker(func(context.Context) error {
		if len(reg.ResolveByRole("connection_type"))+len(reg.ResolveByRole("network_info")) == 0 {
			return errors.New("no reporting module is active")
		}
		return nil
	})
	srv := server.New(srvCfg.Addr(), reg, logger, ready, server.Options{
		RateLimit: viperCfg.GetFloat64("server.rate_limit"),
		RateBurst: viperCfg.GetInt("server.rate_burst"),

		TrustedProxies: trusted,
	}, wsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if script != nil {
		go playScript(ctx, script, source.(*host.Scripted), viperCfg.GetDuration("host.script_step"), logger)
	}

	logger.Info("netbridge ready", zap.String("addr", srvCfg.Addr()))

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg.StopAll(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("netbridge stopped")
	return nil
}

// hostCollaborators returns the system source and prober, or a scripted
// source when host.script names a script file.
func hostCollaborators(v *viper.Viper, logger *zap.Logger) (host.Source, host.WifiProber, *host.Script, error) {
	path := v.GetString("host.script")
	if path == "" {
		return host.NewSystemSource(logger.Named("host")), host.NewWifiProber(logger.Named("wifi")), nil, nil
	}
	script, err := host.LoadScript(path)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("using scripted host source", zap.String("script", path), zap.Int("steps", len(script.Steps)))
	return host.NewScripted(nil), nil, script, nil
}

// playScript emits script steps on src, one every step interval.
func playScript(ctx context.Context, script *host.Script, src *host.Scripted, step time.Duration, logger *zap.Logger) {
	if step <= 0 {
		step = 2 * time.Second
	}
	for i, s := range script.Steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
		}
		if s.ServiceState != "" {
			src.EmitServiceState(s.ServiceState)
		} else {
			src.Emit(s.Observation, s.NoConnectivity)
		}
		logger.Debug("script step played", zap.Int("step", i))
	}
	logger.Info("script finished")
}
