// Package commands defines all Cobra CLI commands for the docsmith binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsmith-ai/docsmith/internal/audit"
	"github.com/docsmith-ai/docsmith/internal/config"
	"github.com/docsmith-ai/docsmith/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsmith",
		Short: "docsmith — document ingestion and question answering over your own files",
		Long: `docsmith ingests text and PDF documents into a Qdrant vector store and
answers natural language questions grounded in their content.

Scanned PDF pages without a text layer are rasterized and run through OCR
before being structured and indexed.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docsmith/config.yaml).
See 'docsmith --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env from the working directory if present; real env wins.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docsmith/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewAskCmd(),
		NewSourcesCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
