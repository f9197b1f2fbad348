package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jan-workspace-cli",
	Short: "Operator commands for the Jan workspace service",
	Long: `jan-workspace-cli runs one-off maintenance tasks against the same
database, queue and realtime backends as the server.

Examples:
  jan-workspace-cli migrate
  jan-workspace-cli sweep
  jan-workspace-cli notify 9f1c2e4a-...`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if envFile == "" {
			return nil
		}
		if _, err := os.Stat(envFile); err != nil {
			return nil
		}
		return godotenv.Overload(envFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(notifyCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before running a command")
}
