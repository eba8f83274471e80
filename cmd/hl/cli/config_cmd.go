package cli

import (
	"fmt"
	"os"

	"hunkline/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect hunkline configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show which config file is used and where hunkline stores its files",
	RunE:  runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	resolved, err := config.Resolve(cfgPath)
	if err != nil {
		return err
	}
	configDir, _ := config.ConfigDir()
	dataDir, _ := config.DataDir()

	if resolved == "" {
		resolved = "(none, using defaults)"
	}
	fmt.Printf("Config:  %s\n", resolved)
	fmt.Printf("Global:  %s\n", configDir)
	fmt.Printf("Data:    %s\n", dataDir)

	// If a config is loadable, show resolved paths.
	cfg, err := loadConfig()
	if err != nil {
		return nil
	}
	fmt.Printf("DB:      %s\n", cfg.DBPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOut {
		printJSON(cfg)
		return nil
	}
	return cfg.Encode(os.Stdout)
}
