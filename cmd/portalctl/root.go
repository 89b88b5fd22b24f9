package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/victorgomez09/portal/internal/config"
	ilogger "github.com/victorgomez09/portal/internal/logger"
)

const envAPIURL = "PORTAL_API_URL"

// app holds the persistent flags shared by every command.
type app struct {
	configPath string
	apiURL     string
	storeDir   string
	jsonOutput bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Operate the consultancy portal",
		Long: `portalctl manages portal accounts directly in the database and drives an
end-user session against the HTTP API.

Environment Variables:
  PORTAL_API_URL  API base URL (overrides session.base_url)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "portal.config.yaml", "path to the portal config file")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL for session commands")
	root.PersistentFlags().StringVar(&a.storeDir, "store-dir", "", "directory holding the session token files")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(a.userCmd())
	root.AddCommand(a.sessionCmds()...)
	return root
}

func (a *app) logger() *zap.Logger {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	l, err := ilogger.Build("portalctl", ilogger.Config{Level: level, OutputPaths: []string{"stderr"}})
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// serverConfig loads the config file strictly. User commands open the database with it.
func (a *app) serverConfig() (*config.Portal, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.configPath, err)
	}
	return cfg, nil
}

// sessionConfig returns the session settings. A missing config file falls back to defaults.
func (a *app) sessionConfig() (config.Session, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return config.Session{}, fmt.Errorf("load %s: %w", a.configPath, err)
		}
		cfg = &config.Portal{}
		cfg.ApplyDefaults()
	}

	s := cfg.Session
	if v := os.Getenv(envAPIURL); v != "" {
		s.BaseURL = v
	}
	if a.apiURL != "" {
		s.BaseURL = a.apiURL
	}
	if a.storeDir != "" {
		s.StoreDir = a.storeDir
	}
	if s.StoreDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return config.Session{}, fmt.Errorf("locate config dir: %w", err)
		}
		s.StoreDir = filepath.Join(dir, "portal")
	}
	return s, nil
}
