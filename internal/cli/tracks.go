package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmlt/demoplayer/internal/config"
	"github.com/jmlt/demoplayer/internal/persist"
	"github.com/jmlt/demoplayer/internal/rocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTracksCommand creates the tracks subcommand group for the tracker
// track store.
func NewTracksCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "Manage stored tracker tracks",
	}

	cmd.AddCommand(newTracksImportCommand(opts))
	cmd.AddCommand(newTracksExportCommand(opts))
	cmd.AddCommand(newTracksListCommand(opts))

	return cmd
}

// trackStore is a connected track database.
type trackStore struct {
	cfg  *config.Config
	log  *zap.Logger
	db   *persist.DB
	repo *persist.TrackRepo
}

func openTrackStore(ctx context.Context, opts *RootOptions) (*trackStore, error) {
	cfg, err := config.Load(configPath(opts))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Database.Enabled {
		return nil, fmt.Errorf("track store needs [database] enabled = true")
	}
	log, err := newLogger(cfg.Logging, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &trackStore{cfg: cfg, log: log, db: db, repo: persist.NewTrackRepo(db)}, nil
}

func (s *trackStore) Close() {
	s.db.Close()
	_ = s.log.Sync()
}

func (s *trackStore) device() *rocket.Device {
	return rocket.NewDevice(s.cfg.Timer.BeatsPerMinute, s.cfg.Timer.RowsPerBeat, s.log)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newTracksImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir|file.xml>",
		Short: "Store track files or a tracker XML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openTrackStore(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			dev := s.device()
			src := args[0]
			if strings.EqualFold(filepath.Ext(src), ".xml") {
				_, err = importXML(dev, src)
			} else {
				_, err = dev.LoadDir(src, s.cfg.Sync.TrackPrefix)
			}
			if err != nil {
				return err
			}

			n := 0
			for _, name := range dev.Names() {
				tr, _ := dev.Lookup(name)
				if err := s.repo.Save(ctx, name, tr.Keys()); err != nil {
					return err
				}
				n++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tracks from %s\n", n, src)
			return nil
		},
	}
}

func newTracksExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write stored tracks as track files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openTrackStore(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			dev := s.device()
			if _, err := s.repo.LoadInto(ctx, dev); err != nil {
				return err
			}
			n, err := dev.SaveDir(args[0], s.cfg.Sync.TrackPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tracks to %s\n", n, args[0])
			return nil
		},
	}
}

func newTracksListCommand(opts *RootOptions) *cobra.Command {
	var revisions int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tracks and their latest revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			s, err := openTrackStore(ctx, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.repo.Names(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range names {
				revs, err := s.repo.Revisions(ctx, name, revisions)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\n", name)
				for _, r := range revs {
					fmt.Fprintf(w, "  %s  %d keys  %s\n", r.Revision, r.KeyCount, r.CreatedAt.Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&revisions, "revisions", 3, "revisions to show per track")

	return cmd
}
