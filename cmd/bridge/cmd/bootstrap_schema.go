package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/felipevillazon/xelips/internal/config"
	"github.com/felipevillazon/xelips/internal/credentials"
	"github.com/felipevillazon/xelips/internal/dbgateway"
	"github.com/felipevillazon/xelips/internal/registry"
	pkglogger "github.com/felipevillazon/xelips/pkg/logger"
)

var bootstrapSchemaCmd = &cobra.Command{
	Use:   "bootstrap-schema",
	Short: "create every table named in the schema file, including the readings table's monthly partitions",
	RunE:  bootstrapSchema,
}

func bootstrapSchema(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("bootstrap-schema: %w", err)
	}
	if cfg.SchemaPath == "" {
		return fmt.Errorf("bootstrap-schema: no schema_path configured")
	}

	creds, err := credentials.Load(cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("bootstrap-schema: %w", err)
	}

	logger := pkglogger.NewLogger(pkglogger.Config{Level: cfg.Log.Level, Output: "stdout"})

	gw := dbgateway.New(dbgateway.Config{
		Host:         creds.SQL.Host,
		Port:         creds.SQL.Port,
		User:         creds.SQL.Username,
		Password:     creds.SQL.Password,
		ServerName:   creds.SQL.ServerName,
		DatabaseName: creds.SQL.DatabaseName,
		SSLMode:      cfg.Database.SSLMode,
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     cfg.Database.MinConns,
	}, logger)

	ctx := context.Background()
	if ok, connErr := gw.Connect(ctx); !ok {
		return fmt.Errorf("bootstrap-schema: could not connect to database: %w", connErr)
	}
	defer gw.Disconnect()

	if !gw.BootstrapSchema(ctx, cfg.SchemaPath) {
		return fmt.Errorf("bootstrap-schema: schema bootstrap failed")
	}

	if err := seedStaticRows(ctx, gw, cfg.SchemaPath, logger); err != nil {
		return fmt.Errorf("bootstrap-schema: %w", err)
	}

	logger.Info("bootstrap-schema: schema applied", "schema_path", cfg.SchemaPath)
	return nil
}

// seedStaticRows pre-populates every table that declares a seed_rows
// block in the schema file. It is a no-op for tables that don't.
func seedStaticRows(ctx context.Context, gw *dbgateway.Gateway, schemaPath string, logger *slog.Logger) error {
	schema, err := dbgateway.ReadSchemaFile(schemaPath)
	if err != nil {
		return err
	}

	for table := range schema.Tables {
		rows, err := registry.StaticRows(schemaPath, table)
		if err != nil {
			return fmt.Errorf("read seed rows for %s: %w", table, err)
		}
		if len(rows) == 0 {
			continue
		}

		converted := make([]map[string]any, len(rows))
		for i, row := range rows {
			converted[i] = map[string]any(row)
		}

		if !gw.InsertStaticRows(ctx, table, converted) {
			return fmt.Errorf("seed rows for %s failed", table)
		}
		logger.Info("bootstrap-schema: seeded static rows", "table", table, "rows", len(rows))
	}
	return nil
}
