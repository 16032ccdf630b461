package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmlt/demoplayer/internal/config"
	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/effect"
	"github.com/jmlt/demoplayer/internal/persist"
	"github.com/jmlt/demoplayer/internal/player"
	"github.com/jmlt/demoplayer/internal/resource"
	"github.com/jmlt/demoplayer/internal/rocket"
	"github.com/jmlt/demoplayer/internal/scene"
	"github.com/jmlt/demoplayer/internal/scripting"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// configPath resolves the config file: flag, then DEMOPLAYER_CONFIG, then
// the default path.
func configPath(opts *RootOptions) string {
	if opts.ConfigPath != "" {
		return opts.ConfigPath
	}
	if p := os.Getenv("DEMOPLAYER_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

func newLogger(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// app is one loaded demo: config, scripts, tracker tracks and the player
// context, plus the optional track database.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	out  *printer
	lua  *scripting.Engine
	ctx  *player.Context
	demo *data.Demo
	db   *persist.DB
	repo *persist.TrackRepo
}

type appOptions struct {
	// database connects the track store when [database] is enabled.
	database bool
	renderer player.Renderer
}

func loadApp(ctx context.Context, opts *RootOptions, w io.Writer, ao appOptions) (*app, error) {
	path := configPath(opts)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := newLogger(cfg.Logging, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, out: &printer{w: w, plain: opts.NoColor || cfg.Logging.Format == "json"}}
	a.out.banner(cfg.Demo.Name)

	a.out.section("definition")
	a.demo, err = data.LoadDemo(cfg.Demo.Definition)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.out.stat("scenes", a.demo.SceneCount())
	a.out.stat("animations", a.demo.AnimationCount())
	a.out.stat("sync tracks", a.demo.SyncCount())

	a.lua = scripting.NewEngine(log)
	if cfg.Demo.Script != "" {
		if err := loadScripts(a.lua, cfg.Demo.Script); err != nil {
			a.Close()
			return nil, err
		}
		a.out.ok("scripts loaded")
	}

	a.out.section("sync")
	dev := rocket.NewDevice(cfg.Timer.BeatsPerMinute, cfg.Timer.RowsPerBeat, log)
	n, err := dev.LoadDir(cfg.Sync.TrackDir, cfg.Sync.TrackPrefix)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.out.stat("track files", n)
	if cfg.Sync.XML != "" {
		n, err := importXML(dev, cfg.Sync.XML)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.out.stat("xml tracks", n)
	}

	if ao.database && cfg.Database.Enabled {
		if err := a.openDB(ctx); err != nil {
			a.Close()
			return nil, err
		}
		n, err := a.repo.LoadInto(ctx, dev)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load stored tracks: %w", err)
		}
		a.out.stat("stored tracks", n)
	}

	var templates scene.Templates
	if cfg.Composition.Enabled {
		templates = scene.DefaultTemplates(cfg.Composition.Target)
	}
	a.ctx = player.NewContext(player.Options{
		Scripts:   a.lua,
		Rocket:    dev,
		Renderer:  ao.renderer,
		Templates: templates,
	}, log)
	return a, nil
}

func loadScripts(e *scripting.Engine, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	if info.IsDir() {
		return e.LoadDir(path)
	}
	return e.LoadFile(path)
}

func importXML(dev *rocket.Device, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open rocket xml: %w", err)
	}
	defer f.Close()
	return dev.ImportXML(f)
}

func (a *app) openDB(ctx context.Context) error {
	a.out.section("database")
	db, err := persist.NewDB(ctx, a.cfg.Database, a.log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("migrations: %w", err)
	}
	a.db = db
	a.repo = persist.NewTrackRepo(db)
	a.out.ok("database connected, migrations applied")
	return nil
}

// effectNames lists the effects to run: the config list, else the
// definition's, else one effect named after the demo.
func (a *app) effectNames() []string {
	switch {
	case len(a.cfg.Demo.Effects) > 0:
		return a.cfg.Demo.Effects
	case len(a.demo.Effects) > 0:
		return a.demo.Effects
	case a.demo.Name != "":
		return []string{a.demo.Name}
	}
	return []string{"Main"}
}

// startEffects registers and initialises every effect. A Lua table of the
// effect's name drives it; otherwise the first effect draws the definition.
func (a *app) startEffects() ([]string, error) {
	names := a.effectNames()
	definitionUsed := false
	for _, name := range names {
		switch {
		case a.lua.HasEffect(name):
			a.ctx.Effects.Register(name, a.lua.Effect(name))
		case !definitionUsed:
			a.ctx.Effects.Register(name, player.DefinitionEffect(name, a.demo))
			definitionUsed = true
		default:
			a.log.Warn("effect has no script, using default hooks", zap.String("effect", name))
			a.ctx.Effects.Register(name, effect.Plain(name))
		}
		if err := a.ctx.Effects.Init(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// loadResources loads every announced resource from the resource dir.
func (a *app) loadResources(ctx context.Context) error {
	l := resource.NewLoader(a.ctx.Resources, a.cfg.Resources.Workers, a.log)
	return l.LoadPending(ctx, resource.FileLoader(a.cfg.Resources.Dir))
}

func (a *app) Close() {
	if a.ctx != nil {
		a.ctx.Close()
	}
	if a.lua != nil {
		a.lua.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}
