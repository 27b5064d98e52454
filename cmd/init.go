package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"swarmsettings/internal/db"
	"swarmsettings/internal/models"
)

var (
	forceInit     bool
	initName      string
	initNoSeed    bool
	initGitignore bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a settings store in the current directory",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Force reinitialize (discards stored settings)")
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	initCmd.Flags().BoolVar(&initNoSeed, "no-seed", false, "Do not seed default settings and instructions")
	initCmd.Flags().BoolVar(&initGitignore, "gitignore", false, "Add .swarm to .gitignore")
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	path := app.cfg.DBPath
	if path == "" {
		path = filepath.Join(cwd, db.SwarmDir, db.DBFileName)
	}

	// Check if already initialized
	if _, err := os.Stat(path); err == nil {
		if !forceInit {
			return fmt.Errorf("already initialized. Use --force to reinitialize")
		}
		if err := db.RemoveDB(path); err != nil {
			return err
		}
	}

	if _, err := db.InitDB(path); err != nil {
		return err
	}

	name := initName
	if name == "" {
		name = filepath.Base(cwd)
	}
	entries := []models.Config{
		{Key: models.ConfigInitializedAt, Value: time.Now().Format(time.RFC3339)},
		{Key: models.ConfigProjectName, Value: name},
	}
	for _, entry := range entries {
		if err := db.SetConfig(entry.Key, entry.Value); err != nil {
			return fmt.Errorf("failed to save %s: %w", entry.Key, err)
		}
	}

	if initNoSeed {
		app.cfg.SeedDefaults = false
	}
	if err := openManager(); err != nil {
		return err
	}

	if initGitignore {
		if err := addToGitignore(cwd, db.SwarmDir); err != nil {
			// Non-fatal, just warn
			fmt.Fprintf(os.Stderr, "Warning: could not add to .gitignore: %v\n", err)
		}
	}

	all := app.manager.GetSettings()
	templates := app.manager.GetTemplates()
	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"success":   true,
			"path":      path,
			"project":   name,
			"settings":  len(all),
			"templates": len(templates),
		})
		return nil
	}

	fmt.Printf("Settings store initialized at %s\n", path)
	fmt.Printf("  %d settings, %d instruction templates\n", len(all), len(templates))

	fmt.Println("\nNext steps:")
	fmt.Println("  swarmctl setting list               List settings")
	fmt.Println("  swarmctl setting set <key> <value>  Change a value")
	fmt.Println("  swarmctl profile create <name>      Create a settings profile")

	return nil
}

func addToGitignore(dir, entry string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	// Read existing content
	content, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == entry || line == entry+"/" {
			return nil // Already in gitignore
		}
	}

	// Append entry
	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	// Add newline if file doesn't end with one
	if len(content) > 0 && content[len(content)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(entry + "\n")
	return err
}
