package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"igfeed/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igfeed configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (IGFEED_*)
  - .env files
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file with every option at its default value.

The file is created as '.igfeed.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".igfeed.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		printer.Hint("To overwrite, first remove the existing file: rm %s", path)
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	header := []byte("# igfeed configuration\n# Every value can also be set with an IGFEED_* environment variable.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	printer.Success("Configuration file created: %s", path)
	printer.Hint("Run 'igfeed config validate' after editing it")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return writeResult(cmd, maskSecrets(*cfg))
}

// maskSecrets returns a copy of cfg safe to print
func maskSecrets(cfg config.Config) config.Config {
	cfg.Instagram.Password = mask(cfg.Instagram.Password)
	cfg.Session.Passphrase = mask(cfg.Session.Passphrase)
	cfg.Session.RedisPassword = mask(cfg.Session.RedisPassword)
	return cfg
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) > 8:
		return secret[:2] + "..." + secret[len(secret)-2:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printer.Success("Configuration is valid")
	printer.Panel("Effective settings", map[string]string{
		"Username":        cfg.Instagram.Username,
		"Session backend": cfg.Session.Backend,
		"Rate limit":      fmt.Sprintf("%d/min (%s)", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Strategy),
		"Retry":           fmt.Sprintf("%t, %d attempts", cfg.Retry.Enabled, cfg.Retry.MaxAttempts),
		"Default count":   fmt.Sprintf("%d", cfg.Feed.DefaultCount),
	})
	return nil
}
