package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarmsettings/internal/db"
	"swarmsettings/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show swarmctl configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved runtime configuration and store metadata",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "Rename the project recorded in the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigProject,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configProjectCmd)
}

// storeMetadata reads the config rows written by init. Missing rows are empty.
func storeMetadata() map[string]string {
	meta := make(map[string]string)
	for _, key := range []string{models.ConfigProjectName, models.ConfigSchemaVersion, models.ConfigInitializedAt} {
		value, err := db.GetConfig(key)
		if err == nil {
			meta[key] = value
		}
	}
	return meta
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := app.cfg.ResolveDBPath()
	if err != nil {
		return err
	}
	meta := storeMetadata()
	configFile := v.ConfigFileUsed()

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"config_file":   configFile,
			"db_path":       path,
			"log_format":    app.cfg.LogFormat,
			"log_file":      app.cfg.LogFile,
			"debug":         app.cfg.Debug,
			"keyring":       app.cfg.Keyring,
			"seed_defaults": app.cfg.SeedDefaults,
			"store":         meta,
		})
		return nil
	}

	fmt.Println("Runtime Configuration:")
	if configFile != "" {
		fmt.Printf("  Config file:   %s\n", configFile)
	} else {
		fmt.Println("  Config file:   (none)")
	}
	fmt.Printf("  Database:      %s\n", path)
	fmt.Printf("  Log format:    %s\n", app.cfg.LogFormat)
	if app.cfg.LogFile != "" {
		fmt.Printf("  Log file:      %s\n", app.cfg.LogFile)
	}
	fmt.Printf("  Debug:         %v\n", app.cfg.Debug)
	if app.cfg.Keyring {
		fmt.Printf("  Secrets:       system keyring (service %s)\n", models.KeyringServiceName)
	} else {
		fmt.Println("  Secrets:       stored in database")
	}
	fmt.Printf("  Seed defaults: %v\n", app.cfg.SeedDefaults)

	fmt.Println("\nStore:")
	fmt.Printf("  Project:       %s\n", valueOr(meta[models.ConfigProjectName], "(not set)"))
	fmt.Printf("  Schema:        %s\n", valueOr(meta[models.ConfigSchemaVersion], "(unknown)"))
	fmt.Printf("  Initialized:   %s\n", valueOr(meta[models.ConfigInitializedAt], "(unknown)"))
	return nil
}

func runConfigProject(cmd *cobra.Command, args []string) error {
	if err := db.SetConfig(models.ConfigProjectName, args[0]); err != nil {
		return fmt.Errorf("failed to save project name: %w", err)
	}
	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "project": args[0]})
		return nil
	}
	fmt.Printf("Project name set to %s\n", args[0])
	return nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
