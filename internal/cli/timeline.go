package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/spf13/cobra"
)

type timelineOptions struct {
	at []float64
}

// NewTimelineCommand creates the timeline subcommand. It prints the draw
// calls of every running effect at the given demo times without rendering.
func NewTimelineCommand(opts *RootOptions) *cobra.Command {
	to := &timelineOptions{}

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print the draw calls at given demo times",
		Long: `Loads the demo headless and prints, for every --at time, which scenes
and animations are live, in draw order, with their progress and
evaluated parameters. Times are visited in ascending order so sync
callbacks fire as they would during playback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimeline(cmd, opts, to)
		},
	}

	cmd.Flags().Float64SliceVar(&to.at, "at", []float64{0}, "demo times in seconds")

	return cmd
}

func runTimeline(cmd *cobra.Command, opts *RootOptions, to *timelineOptions) error {
	w := cmd.OutOrStdout()
	a, err := loadApp(commandContext(cmd), opts, io.Discard, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.startEffects()
	if err != nil {
		return err
	}

	times := append([]float64(nil), to.at...)
	sort.Float64s(times)
	for _, t := range times {
		fmt.Fprintf(w, "t=%g\n", t)
		for _, name := range names {
			stage, ok := a.ctx.Stage(name)
			if !ok {
				continue
			}
			for _, call := range stage.Dispatcher.Frame(stage.Loader, t) {
				fmt.Fprintf(w, "  %s %s\n", name, formatCall(call))
			}
		}
	}
	return nil
}

func formatCall(call player.DrawCall) string {
	if c := call.Animation.Composition; c != nil {
		verb := "end"
		if c.Stage == scene.StageBegin {
			verb = "begin"
		}
		return fmt.Sprintf("%s %s scene_t=%s", verb, c.Target, num(call.SceneTime))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "draw %s/%s key=%s scene_t=%s progress=%s",
		call.Scene, call.Animation.Name, call.Key, num(call.SceneTime), num(call.Progress))
	if call.Synced {
		b.WriteString(" synced")
	}
	keys := make([]string, 0, len(call.Values))
	for k := range call.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := call.Values[k].Values
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = num(v)
		}
		fmt.Fprintf(&b, " %s=[%s]", k, strings.Join(parts, " "))
	}
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
