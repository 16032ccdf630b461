// Package cli implements the demoplayer command line.
package cli

import (
	"github.com/spf13/cobra"
)

// DefaultConfigPath is used when neither --config nor DEMOPLAYER_CONFIG is set.
const DefaultConfigPath = "config/demo.toml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	NoColor    bool
}

// NewRootCommand creates the root command of the demo player.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "demoplayer",
		Short: "Timeline and sync player for real-time demos",
		Long: `Plays demos authored as scenes of layered animations on a timeline,
driven by sync tracks (self-timed patterns or tracker tracks).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $DEMOPLAYER_CONFIG or "+DefaultConfigPath+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "plain startup output")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTracksCommand(opts))

	return cmd
}
