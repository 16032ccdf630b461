package cli

import (
	"fmt"

	"github.com/jmlt/demoplayer/internal/config"
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/scripting"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [definition.yaml]",
		Short: "Check a demo definition and its scripts",
		Long: `Parses and checks a demo definition. Without an argument the definition
and scripts named by the config are checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &printer{w: cmd.OutOrStdout(), plain: opts.NoColor}

			var cfg *config.Config
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				var err error
				if cfg, err = config.Load(configPath(opts)); err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				path = cfg.Demo.Definition
			}

			out.section("definition")
			demo, err := data.LoadDemo(path)
			if err != nil {
				return err
			}
			out.stat("scenes", demo.SceneCount())
			out.stat("animations", demo.AnimationCount())
			out.stat("timeline entries", len(demo.Timeline))
			out.stat("sync tracks", demo.SyncCount())
			out.stat("resources", len(demo.Resources))

			if cfg != nil && cfg.Demo.Script != "" {
				e := scripting.NewEngine(zap.NewNop())
				defer e.Close()
				if err := loadScripts(e, cfg.Demo.Script); err != nil {
					return err
				}
				out.ok("scripts loaded")
			}

			out.ok(fmt.Sprintf("%s is valid", path))
			return nil
		},
	}
}
