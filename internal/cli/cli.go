// Package cli implements the texbake command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/texbake/pkg/buildinfo"
	"github.com/matzehuels/texbake/pkg/history"
	"github.com/matzehuels/texbake/pkg/host/soft"
	"github.com/matzehuels/texbake/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "texbake"

	// defaultHistoryLimit is the number of runs listed by "history".
	defaultHistoryLimit = 20
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Texbake bakes PBR texture maps from procedural materials",
		Long: `Texbake bakes the procedural materials of selected scene objects into
albedo, normal, roughness, metallic, ambient occlusion and emission textures,
packs metallic and roughness into one image, and replaces the objects'
materials with a simple image-based PBR material.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.bakeCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.historyCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over a fresh software host.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(soft.New(soft.WithLogger(c.Logger)), c.Logger)
}

// =============================================================================
// Paths
// =============================================================================

// historyPath returns the ledger location, preferring an explicit flag value.
func historyPath(flag string) string {
	if flag != "" {
		return flag
	}
	return history.DefaultPath()
}
