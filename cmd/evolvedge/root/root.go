// Package root wires the CLI commands and launches the TUI.
package root

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/app"
	"github.com/evolvedge/evolvedge/internal/model"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "evolvedge",
	Short:         "EvolvEdge is a personal growth tracker with an AI assistant",
	Long:          "EvolvEdge tracks your goals, skills, routines, and daily plan, with a Gemini-backed assistant that can manage them for you.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")

	rootCmd.AddCommand(
		newKeyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runTUI() error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	session, assistant, advisor, cfg, cleanup, err := openSession(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	program := tea.NewProgram(
		app.New(session, assistant, advisor, cfg, configPath, logger),
		tea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

// newLogger writes structured logs to a file next to the config so they do
// not corrupt the TUI output.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	logPath := os.Getenv("EVOLVEDGE_LOG")
	if logPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			logPath = filepath.Join(home, ".config", "evolvedge", "evolvedge.log")
		}
	}
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
			cfg.OutputPaths = []string{logPath}
			cfg.ErrorOutputPaths = []string{logPath}
		}
	}
	return cfg.Build()
}
