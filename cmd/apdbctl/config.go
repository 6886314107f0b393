package main

import (
	"github.com/spf13/cobra"

	"github.com/ap-survey/apdb/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the loaded configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as loaded from defaults, YAML and APDB_ env vars",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		outputJSON(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
