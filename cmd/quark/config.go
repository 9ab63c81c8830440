package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/quark/internal/config"
	"github.com/vango-dev/quark/internal/errors"
)

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
	}
	cmd.AddCommand(configShowCmd(flags), configInitCmd(flags))
	return cmd
}

func configShowCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration after defaults are applied.

Examples:
  quark config show
  quark config show --format=yaml
  quark config show -c deploy/quark.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := formatExt(format)
			if err != nil {
				return err
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal(ext)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")

	return cmd
}

func configInitCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a configuration file with the default settings into --dir.

Examples:
  quark config init
  quark config init --format=yaml
  quark config init -C ./service --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := formatExt(format)
			if err != nil {
				return err
			}
			if config.Exists(flags.dir) && !force {
				return errors.New("Q200").
					WithDetail("A config file already exists in " + flags.dir).
					WithSuggestion("Use --force to overwrite it")
			}

			name := config.JSONFileName
			if ext == ".yaml" {
				name = config.YAMLFileName
			}
			if err := os.MkdirAll(flags.dir, 0755); err != nil {
				return errors.New("Q100").Wrap(err)
			}

			path := filepath.Join(flags.dir, name)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format: json or yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

// formatExt maps a --format value to a file extension.
func formatExt(format string) (string, error) {
	switch format {
	case "json":
		return ".json", nil
	case "yaml", "yml":
		return ".yaml", nil
	default:
		return "", errors.New("Q200").
			WithDetail("Unknown format " + format).
			WithSuggestion("Use --format=json or --format=yaml")
	}
}
