package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"swarmsettings/internal/config"
	"swarmsettings/internal/db"
	"swarmsettings/internal/logger"
	"swarmsettings/internal/output"
	"swarmsettings/internal/providers"
	"swarmsettings/internal/secrets"
	"swarmsettings/internal/settings"
)

var (
	Version    = "0.1.0"
	jsonOutput bool
	cfgFile    string
	dbPath     string
	debugLog   bool

	v = config.New()
)

// app holds what PersistentPreRunE resolved for the running command
var app struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile *os.File
	manager *settings.Manager
}

// commandsExemptFromDB lists commands that don't require database initialization
var commandsExemptFromDB = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "swarmctl",
	Short: "swarmctl - settings, profiles and instruction templates for agent swarms",
	Long: `swarmctl manages the typed settings, settings profiles and instruction
templates shared by the agents of a swarm. Everything is stored in a local
SQLite database (.swarm/settings.db).

QUICK START:
  swarmctl init                                  # Initialize and seed defaults
  swarmctl setting list                          # List settings and current values
  swarmctl setting set temperature 0.9           # Validate and store a value
  swarmctl profile create creative --set temperature=1.0
  swarmctl profile resolve creative              # Settings as the profile sees them
  swarmctl template render system --var domain=SEO

VALUES: arguments are parsed as JSON when possible ("0.9", "true", "[\"search\"]"),
otherwise taken as plain strings.

CONFIGURATION: --config, --db, or SWARM_DB_PATH, SWARM_DEBUG, SWARM_LOG_FORMAT,
SWARM_LOG_FILE, SWARM_KEYRING, SWARM_SEED_DEFAULTS.

JSON OUTPUT: Add --json flag to any command for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupRuntime(); err != nil {
			return err
		}
		if commandsExemptFromDB[cmd.Name()] {
			return nil
		}
		path, err := app.cfg.ResolveDBPath()
		if err != nil {
			return err
		}
		if err := db.EnsureInitialized(path); err != nil {
			return err
		}
		return openManager()
	},
}

// setupRuntime loads configuration and builds the logger
func setupRuntime() error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	app.cfg = cfg

	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		app.logFile = f
		opts = append(opts, logger.WithWriter(f))
	}
	app.log = logger.New(opts...)
	return nil
}

// openManager loads the settings store from the open database and seeds the
// default settings and instructions unless disabled
func openManager() error {
	opts := []settings.Option{settings.WithLogger(app.log)}
	if app.cfg.Keyring {
		opts = append(opts, settings.WithSecretStore(secrets.NewKeyringStore()))
	}
	m, err := settings.NewManager(db.GetDB(), opts...)
	if err != nil {
		return err
	}
	app.manager = m

	if !app.cfg.SeedDefaults {
		return nil
	}
	if _, err := providers.NewSettingsProvider(m, app.log); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	if _, err := providers.NewInstructionProvider(m, app.log); err != nil {
		return fmt.Errorf("failed to seed instructions: %w", err)
	}
	return nil
}

// resetApp drops per-invocation state
func resetApp() {
	db.CloseDB()
	if app.logFile != nil {
		app.logFile.Close()
	}
	app.cfg, app.log, app.logFile = nil, nil, nil
	app.manager = nil
}

func Execute() {
	defer resetApp()

	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			OutputJSON(map[string]interface{}{"error": true, "message": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		resetApp()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.StringVar(&cfgFile, "config", "", "Config file (default .swarm/swarm.yaml)")
	flags.StringVar(&dbPath, "db", "", "Database path (default .swarm/settings.db)")
	flags.BoolVar(&debugLog, "debug", false, "Enable debug logging")
	v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
	v.BindPFlag(config.KeyDebug, flags.Lookup("debug"))
	rootCmd.Version = Version
}

func OutputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(data)
}

func IsJSONOutput() bool {
	return jsonOutput
}

func formatter() output.Formatter {
	return output.New(jsonOutput)
}
