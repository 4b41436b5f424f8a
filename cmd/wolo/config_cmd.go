package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/wolo/internal/config"
)

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(buildConfigShowCmd(), buildConfigDocsCmd())
	return cmd
}

func buildConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.DefaultConfigPath())
			if err != nil {
				return err
			}
			redactKeys(cfg)
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// redactKeys blanks API keys before printing.
func redactKeys(cfg *config.Config) {
	for i := range cfg.Endpoints {
		if cfg.Endpoints[i].APIKey != "" {
			cfg.Endpoints[i].APIKey = "[redacted]"
		}
	}
}

func buildConfigDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Print an annotated reference config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.Docs())
			return nil
		},
	}
}
