// Package cmd implements the bridge CLI: running the per-PLC engines
// and bootstrapping the database schema.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "xelips",
	Short: "OPC UA telemetry bridge",
	Long:  "xelips polls PLC readings and subscribes to alarm transitions over OPC UA, writing both to PostgreSQL.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the application config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bootstrapSchemaCmd)
}
