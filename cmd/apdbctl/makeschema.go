package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var makeSchemaDrop bool
var makeSchemaYes bool

var makeSchemaCmd = &cobra.Command{
	Use:   "make-schema",
	Short: "Create the physical tables for the configured backend",
	Long: `make-schema creates every physical table the configured backend
needs. On the Cassandra backend this includes the time-partition table
family when time_partition_tables is enabled, and make-schema also records
the immutable metadata row this deployment must never contradict; the SQL
backend creates one table per logical table and records no metadata.

With --drop, existing tables are dropped first. This is destructive and
prompts for confirmation unless --yes is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if makeSchemaDrop && !makeSchemaYes {
			var confirmed bool
			err := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title("This drops and recreates every table. Continue?").
						Affirmative("Drop and recreate").
						Negative("Cancel").
						Value(&confirmed),
				),
			).Run()
			if err != nil {
				if err == huh.ErrUserAborted {
					fmt.Println("make-schema cancelled.")
					return nil
				}
				return err
			}
			if !confirmed {
				fmt.Println("make-schema cancelled.")
				return nil
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		store, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.MakeSchema(ctx, makeSchemaDrop); err != nil {
			return err
		}
		fmt.Println("schema ready")
		return nil
	},
}

func init() {
	makeSchemaCmd.Flags().BoolVar(&makeSchemaDrop, "drop", false, "drop existing tables before creating them")
	makeSchemaCmd.Flags().BoolVar(&makeSchemaYes, "yes", false, "skip the confirmation prompt for --drop")
}
