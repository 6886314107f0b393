// Command apdbctl is the operator-facing CLI for the alert production
// database: schema creation, ad-hoc reads, a JSONL-fixture ingest demo,
// and configuration inspection, all against whichever backend
// Config.Backend selects.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Blank-imported so each backend's init() registers itself with
	// internal/backend before rootCmd dispatches on Config.Backend.
	_ "github.com/ap-survey/apdb/internal/cassandraapdb"
	_ "github.com/ap-survey/apdb/internal/sqlapdb"
)

var (
	cfgFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "apdbctl",
	Short: "Operate an alert production database",
	Long: `apdbctl is the operator CLI for the alert production database: a
write-once/read-many store for DiaObject, DiaSource and DiaForcedSource
catalogs, backed by Cassandra or a plain SQL reference engine.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to apdb.yaml (default: search current dir, $HOME/.config/apdb, /etc/apdb)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of tables")

	rootCmd.AddCommand(makeSchemaCmd)
	rootCmd.AddCommand(getObjectsCmd)
	rootCmd.AddCommand(getSourcesCmd)
	rootCmd.AddCommand(getForcedSourcesCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(configCmd)
}

// signalContext returns a context canceled on SIGINT/SIGTERM, matching
// the teacher's root-level graceful-shutdown context in cmd/bd/main.go.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
