package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felipevillazon/xelips/internal/config"
	"github.com/felipevillazon/xelips/internal/credentials"
	"github.com/felipevillazon/xelips/internal/dbgateway"
	"github.com/felipevillazon/xelips/internal/engine"
	"github.com/felipevillazon/xelips/internal/metrics"
	pkglogger "github.com/felipevillazon/xelips/pkg/logger"
)

// shutdownGrace bounds how long the metrics server is given to drain
// in-flight requests once a shutdown signal arrives.
const shutdownGrace = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run every configured PLC engine until signalled to stop",
	RunE:  runBridge,
}

func runBridge(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger := pkglogger.NewLogger(pkglogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	creds, err := credentials.Load(cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		g.Go(func() error {
			logger.Info("run: metrics server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil {
				logger.Warn("run: metrics server stopped", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return metrics.Shutdown(shutdownCtx, srv)
		})
	}

	engines, err := buildEngines(cfg, creds, logger)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for _, e := range engines {
		g.Go(func() error { return e.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		for _, e := range engines {
			e.Shutdown()
		}
		return nil
	})

	return g.Wait()
}

func buildEngines(cfg *config.Config, creds *credentials.File, logger *slog.Logger) ([]*engine.Engine, error) {
	engines := make([]*engine.Engine, 0, len(cfg.PLCs))
	for _, plc := range cfg.PLCs {
		opcuaCreds, ok := creds.OPCUA[plc.Key]
		if !ok {
			return nil, fmt.Errorf("no credentials configured for plc key %q", plc.Key)
		}

		engineCfg := engine.Config{
			PLCName:            plc.Key,
			Endpoint:           opcuaCreds.Endpoint,
			Username:           opcuaCreds.Username,
			Password:           opcuaCreds.Password,
			RegistryPath:       plc.RegistryPath,
			EventCounterPath:   plc.EventCounterPath,
			PollPeriod:         plc.PollPeriod,
			PublishingInterval: plc.PublishingInterval,
			DB: dbgateway.Config{
				Host:         creds.SQL.Host,
				Port:         creds.SQL.Port,
				User:         creds.SQL.Username,
				Password:     creds.SQL.Password,
				ServerName:   creds.SQL.ServerName,
				DatabaseName: creds.SQL.DatabaseName,
				SSLMode:      cfg.Database.SSLMode,
				MaxConns:     cfg.Database.MaxConns,
				MinConns:     cfg.Database.MinConns,
				ConnTimeout:  cfg.Database.ConnectTimeout,
			},
		}
		engines = append(engines, engine.New(engineCfg, logger))
	}
	return engines, nil
}
