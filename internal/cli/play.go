package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmlt/demoplayer/internal/core/event"
	coresys "github.com/jmlt/demoplayer/internal/core/system"
	"github.com/jmlt/demoplayer/internal/perf"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type playOptions struct {
	fast          bool
	frames        int
	statsInterval time.Duration
	saveInterval  int
}

// NewPlayCommand creates the play subcommand.
func NewPlayCommand(opts *RootOptions) *cobra.Command {
	po := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the demo",
		Long: `Loads the demo and runs the frame loop until the end time, the frame
limit or an interrupt. With --fast the clock advances one frame per
iteration without waiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(commandContext(cmd), cmd, opts, po)
		},
	}

	cmd.Flags().BoolVar(&po.fast, "fast", false, "advance fixed steps without waiting")
	cmd.Flags().IntVar(&po.frames, "frames", 0, "stop after this many frames (0 = no limit)")
	cmd.Flags().DurationVar(&po.statsInterval, "stats", 10*time.Second, "interval between frame stats (0 = off)")
	cmd.Flags().IntVar(&po.saveInterval, "save-every", 300, "frames between tracker track saves")

	return cmd
}

func runPlay(ctx context.Context, cmd *cobra.Command, opts *RootOptions, po *playOptions) error {
	a, err := loadApp(ctx, opts, cmd.OutOrStdout(), appOptions{database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if po.fast && po.frames <= 0 && a.cfg.Demo.EndTime <= 0 {
		return fmt.Errorf("--fast needs --frames or demo.end_time")
	}

	cfg := a.cfg
	log := a.log
	bus := a.ctx.Bus
	timer := player.NewTimer(cfg.Timer.BeatsPerMinute)

	finished := false
	event.Subscribe(bus, func(e event.EffectStarted) {
		log.Info("effect started", zap.String("effect", e.Name), zap.Float64("time", e.Time))
	})
	event.Subscribe(bus, func(e event.ResourcesLoaded) {
		log.Info("resources loaded", zap.Int64("count", e.Count), zap.Float64("time", e.Time))
	})
	event.Subscribe(bus, func(e event.DemoFinished) {
		log.Info("demo finished", zap.Float64("time", e.Time))
		finished = true
	})

	a.out.section("effects")
	names, err := a.startEffects()
	if err != nil {
		return err
	}
	for _, name := range names {
		event.Emit(bus, event.EffectStarted{Name: name, Time: timer.Seconds()})
		a.out.ok(name)
	}

	// Resources stream in while the demo runs; readiness is reported by
	// the readiness system.
	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()
	loadErr := make(chan error, 1)
	go func() { loadErr <- a.loadResources(loadCtx) }()

	runner := coresys.NewRunner()
	runner.Register(system.NewClockSystem(timer, a.ctx.Rocket))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewReadinessSystem(a.ctx.Resources, bus, timer, log))
	runner.Register(system.NewEndSystem(timer, a.ctx.Rocket, bus, cfg.Demo.EndTime, cfg.Demo.Loop, log))
	runner.Register(system.NewDrawSystem(a.ctx.Effects, timer))

	counter := perf.NewCounter(cfg.Timer.FPS, nil)
	var sampler *perf.Sampler
	if po.statsInterval > 0 {
		if sampler, err = perf.NewSampler(); err != nil {
			log.Warn("process sampler unavailable", zap.Error(err))
			sampler = nil
		}
	}
	runner.Register(system.NewStatsSystem(counter, sampler, po.statsInterval, nil, log))

	var persistSys *system.PersistenceSystem
	if a.repo != nil {
		persistSys = system.NewPersistenceSystem(a.ctx.Rocket, a.repo, log, po.saveInterval)
		runner.Register(persistSys)
	}

	step := counter.FrameBudget()
	a.out.section("playback")
	a.out.ready(fmt.Sprintf("frame loop started (%.0f fps)", cfg.Timer.FPS))
	fmt.Fprintln(cmd.OutOrStdout())

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	var tick <-chan time.Time
	if !po.fast {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		tick = ticker.C
	}

	for !finished && (po.frames <= 0 || runner.Frames() < uint64(po.frames)) {
		if tick != nil {
			select {
			case <-tick:
			case sig := <-shutdownCh:
				log.Info("shutdown signal received", zap.String("signal", sig.String()))
				finished = true
				continue
			case <-ctx.Done():
				finished = true
				continue
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("shutdown signal received", zap.String("signal", sig.String()))
				finished = true
				continue
			case <-ctx.Done():
				finished = true
				continue
			default:
			}
		}
		runner.Tick(step)
	}

	// Drain events emitted on the final frame.
	bus.SwapBuffers()
	bus.DispatchAll()

	cancelLoad()
	if err := <-loadErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("resources incomplete", zap.Error(err))
	}
	if persistSys != nil {
		persistSys.Flush(context.Background())
	}

	for _, p := range coresys.Phases() {
		log.Debug("last frame phase time", zap.Stringer("phase", p), zap.Duration("spent", runner.PhaseTime(p)))
	}
	log.Info("playback stopped",
		zap.Uint64("frames", runner.Frames()),
		zap.Float64("time", timer.Seconds()),
		zap.Float64("fps", counter.FPS()))
	return nil
}
