package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"baniusync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or save the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Save credentials and the default directory to the INI profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := config.SaveProfile(cfg, cfg.Profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config was saved into %s\n", cfg.Profile)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return cmd
}
