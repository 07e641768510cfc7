package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jbweber/homelab/animes/internal/config"
	"github.com/jbweber/homelab/animes/internal/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "animes",
	Short: "A REST catalog of anime titles",
	Long: `animes serves a small JSON API under /animes for creating, listing,
finding, replacing and deleting anime titles, backed by SQLite or Postgres.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is config.yaml or .animes.yaml in . then $HOME)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console or json)")
	pf.String("db-driver", config.DriverSQLite, "database driver (sqlite or postgres)")
	pf.String("db-dsn", "~/animes/data/animes.db", "database path or connection string")

	bindFlags(pf, map[string]string{
		"log.level":       "log-level",
		"log.format":      "log-format",
		"database.driver": "db-driver",
		"database.dsn":    "db-dsn",
	})
}

// bindFlags binds each viper key to the named flag
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// configNames are searched, in order, in the working directory then $HOME
var configNames = []string{"config.yaml", ".animes.yaml"}

// findConfigFile returns the first existing config file under dirs
func findConfigFile(dirs ...string) (string, bool) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		if path, ok := findConfigFile(".", home); ok {
			viper.SetConfigFile(path)
		}
	}

	config.BindEnv(viper.GetViper())

	if viper.ConfigFileUsed() == "" {
		return
	}
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read config file:", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
}

// loadConfig decodes the merged flag, env and file configuration and builds the logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}
