// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/journal"
	"github.com/jeranaias/helios-tui/internal/logging"
	"github.com/jeranaias/helios-tui/internal/stream"
)

// Version is set at build time.
var Version = "dev"

// app holds global flags and the resources a command opened.
type app struct {
	configPath string
	serverURL  string
	transport  string
	verbose    bool

	logger  *zap.Logger
	journal *journal.Journal
}

// NewRootCommand builds the helios command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "helios",
		Short: "Terminal client for the Helios transformation engine",
		Long: `helios sends what you share to the Helios backend and follows the
six-stage transformation live: belief, drive, collective, behavior, mind and
reaction.

Run without arguments to start the interactive chat interface.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runTUI,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.helios/config.toml)")
	flags.StringVar(&a.serverURL, "server", "", "backend base URL")
	flags.StringVar(&a.transport, "transport", "", "push transport: sse or websocket")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.askCommand(),
		a.chatCommand(),
		a.sessionsCommand(),
		a.configCommand(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
	}
	return ExitCode(err)
}

// =============================================================================
// SHARED RESOURCES
// =============================================================================

// configFile returns the file settings are read from and saved to.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

// loadConfig loads settings, applies flag overrides and validates.
func (a *app) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if a.configPath != "" {
		loaded, err := config.LoadFromPath(a.configPath)
		if err != nil {
			return nil, configError(err)
		}
		cfg = loaded
	} else {
		loaded, err := config.Load()
		if loaded == nil {
			return nil, configError(err)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		cfg = loaded
	}

	a.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, configError(fmt.Errorf("invalid config: %w", err))
	}

	return cfg, nil
}

// applyFlags overrides file settings with command line flags.
func (a *app) applyFlags(cfg *config.Config) {
	if a.serverURL != "" {
		cfg.Server.BaseURL = a.serverURL
	}
	if a.transport != "" {
		cfg.Server.Transport = strings.ToLower(a.transport)
	}
}

// ensureIdentity gives cfg a user id and persists it when one was created.
func (a *app) ensureIdentity(cfg *config.Config) {
	if !cfg.EnsureIdentity() {
		return
	}
	if err := a.saveIdentity(cfg.Identity); err != nil {
		a.log().Warn("failed to persist identity", zap.Error(err))
	}
}

// saveIdentity writes identity into the config file, keeping the other
// settings as they are on disk.
func (a *app) saveIdentity(identity config.IdentityConfig) error {
	path, err := a.configFile()
	if err != nil {
		return err
	}
	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	cfg.Identity = identity
	return config.SaveTOML(cfg, path)
}

// readConfigFile loads path without environment overrides so a save does
// not persist them. A missing file yields defaults.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return nil, err
		}
	}
	cfg.SetDefaults()
	return cfg, nil
}

// initLogger builds the logger. Headless commands may log to stderr with
// --verbose; otherwise logs go to the configured file.
func (a *app) initLogger(cfg *config.Config, stderr bool) error {
	file, err := cfg.LogPath()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		File:    file,
		Stderr:  stderr && a.verbose,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// openJournal opens the session journal when it is enabled. A journal that
// cannot be opened is logged and skipped.
func (a *app) openJournal(cfg *config.Config) *journal.Journal {
	if !cfg.Journal.Enabled {
		return nil
	}
	path, err := cfg.JournalPath()
	if err == nil {
		a.journal, err = journal.Open(path)
	}
	if err != nil {
		a.log().Warn("journal unavailable", zap.Error(err))
		return nil
	}
	return a.journal
}

func (a *app) close() {
	if a.journal != nil {
		_ = a.journal.Close()
		a.journal = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// =============================================================================
// CLIENT WIRING
// =============================================================================

// streamOptions builds session options from cfg.
func streamOptions(cfg *config.Config, logger *zap.Logger) stream.Options {
	var transport stream.Transport
	switch cfg.Server.Transport {
	case config.TransportWebSocket:
		transport = stream.NewWebSocketTransport(cfg.Server.BaseURL, cfg.Server.WebSocketPath)
	default:
		transport = stream.NewSSETransport(cfg.Server.BaseURL, cfg.Server.StreamPath)
	}

	trigger := stream.NewHTTPTrigger(cfg.Server.BaseURL, cfg.Server.TriggerPath).
		WithTimeout(cfg.Session.TriggerTimeout())

	return stream.Options{
		Transport:   transport,
		Trigger:     trigger,
		OpenTimeout: cfg.Session.OpenTimeout(),
		GracePeriod: cfg.Session.GracePeriod(),
		Logger:      logger.Named("stream"),
	}
}

// newClient prepares everything a session command needs.
func (a *app) newClient(cmd *cobra.Command, stderrLogs bool) (*config.Config, *stream.Client, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := a.initLogger(cfg, stderrLogs); err != nil {
		return nil, nil, configError(err)
	}
	a.ensureIdentity(cfg)

	a.log().Info("starting",
		zap.String("command", cmd.Name()),
		zap.String("server", cfg.Server.BaseURL),
		zap.String("transport", cfg.Server.Transport))

	return cfg, stream.NewClient(streamOptions(cfg, a.log())), nil
}
