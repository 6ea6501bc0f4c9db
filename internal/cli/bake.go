package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/texbake/pkg/config"
	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/history"
	"github.com/matzehuels/texbake/pkg/pipeline"
)

// bakeOpts holds the flags of the bake command.
type bakeOpts struct {
	watch      bool
	debounce   time.Duration
	noHistory  bool
	historyDB  string
	outputDir  string
	resolution int
}

// bakeCommand creates the bake command.
func (c *CLI) bakeCommand() *cobra.Command {
	opts := &bakeOpts{}

	cmd := &cobra.Command{
		Use:   "bake <config>",
		Short: "Bake texture maps for the objects named in a config file",
		Long: `Bake texture maps for the objects named in a config file.

The config is a JSON, TOML or YAML file. Every key can be overridden with a
TEXBAKE_ environment variable, for example TEXBAKE_TEXTURE_RESOLUTION=2048.
Textures are written to <output_directory>/textures together with a
bake manifest, and each run is recorded in the local history.`,
		Example: `  texbake bake rock.json
  texbake bake rock.toml --resolution 512 -o build/rock
  texbake bake rock.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch {
				return c.watchBake(cmd.Context(), args[0], opts)
			}
			_, err := c.runBake(cmd.Context(), args[0], opts)
			return err
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run the bake when the config or scene file changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", defaultDebounce, "quiet period before a watched change triggers a bake")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record the run in the history ledger")
	cmd.Flags().StringVar(&opts.historyDB, "history-db", "", "history ledger path (default $XDG_DATA_HOME/texbake/history.db)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "override output_directory")
	cmd.Flags().IntVarP(&opts.resolution, "resolution", "r", 0, "override texture_resolution")

	return cmd
}

// loadOptions reads the config at path and applies flag overrides.
func (c *CLI) loadOptions(path string, opts *bakeOpts) (*config.Config, pipeline.Options, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	if opts.outputDir != "" {
		abs, err := filepath.Abs(opts.outputDir)
		if err != nil {
			return nil, pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "output directory %s", opts.outputDir)
		}
		cfg.OutputDir = abs
	}
	if opts.resolution != 0 {
		cfg.Resolution = opts.resolution
	}
	popts, err := cfg.Options()
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	popts.Logger = c.Logger
	return cfg, popts, nil
}

// runBake loads the config, executes one bake and reports the result.
func (c *CLI) runBake(ctx context.Context, path string, opts *bakeOpts) (*pipeline.Result, error) {
	cfg, popts, err := c.loadOptions(path, opts)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, runErr := c.newRunner().Execute(ctx, popts)
	if !opts.noHistory {
		c.record(ctx, historyPath(opts.historyDB), cfg, popts, started, res, runErr)
	}
	if runErr != nil {
		return nil, runErr
	}

	printResult(res, popts)
	return res, nil
}

// record writes the run to the history ledger. Ledger failures are logged
// and never fail the bake.
func (c *CLI) record(ctx context.Context, dbPath string, cfg *config.Config, opts pipeline.Options, started time.Time, res *pipeline.Result, runErr error) {
	entry := history.Run{
		ID:         uuid.NewString(),
		Started:    started,
		Duration:   time.Since(started),
		ConfigPath: cfg.Path(),
		SceneFile:  opts.SceneFile,
		Mode:       opts.Mode(),
		Objects:    opts.Objects,
		Status:     history.StatusSucceeded,
	}
	if res != nil {
		entry.ID = res.RunID
		entry.Files = res.Files
	}
	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.Error = runErr.Error()
	}

	// A canceled bake still gets its ledger entry.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(dbPath)
	if err != nil {
		c.Logger.Warn("history unavailable", "path", dbPath, "err", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, entry); err != nil {
		c.Logger.Warn("could not record run", "run", entry.ID, "err", err)
		return
	}
	c.Logger.Debug("recorded run", "run", entry.ID, "status", entry.Status)
}

// printResult reports a finished bake.
func printResult(res *pipeline.Result, opts pipeline.Options) {
	printSuccess("Baked %s for %s", StyleHighlight.Render(opts.OutputName), strings.Join(opts.Objects, ", "))
	printKeyValue("Run", res.RunID)
	printKeyValue("Mode", res.Mode)
	printKeyValue("Resolution", fmt.Sprintf("%dx%d", opts.Resolution, opts.Resolution))
	printKeyValue("Output", opts.OutputDir)
	for _, f := range res.Files {
		printFile(f)
	}
	printStats(res.Stats.Scopes, res.Stats.BakeJobs, len(res.Files), res.Stats.TotalTime)

	if len(res.UVGenerated) > 0 {
		names := make([]string, len(res.UVGenerated))
		for i, id := range res.UVGenerated {
			names[i] = string(id)
		}
		printWarning("Generated UV maps for %s", strings.Join(names, ", "))
	}
	if res.ExportPath != "" {
		printNextStep("Inspect the baked material", appName+" graph "+res.ExportPath)
	}
}
