package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jmlt/demoplayer/internal/rocket"
)

// TrackRow is the stored state of one tracker track.
type TrackRow struct {
	Name      string
	Revision  uuid.UUID
	Keys      []rocket.Key
	UpdatedAt time.Time
}

// RevisionRow is one past save of a track.
type RevisionRow struct {
	Revision  uuid.UUID
	Name      string
	KeyCount  int
	CreatedAt time.Time
}

type TrackRepo struct {
	db *DB
}

func NewTrackRepo(db *DB) *TrackRepo {
	return &TrackRepo{db: db}
}

// Save stores the keys as the current track state and appends a revision,
// both in one transaction.
func (r *TrackRepo) Save(ctx context.Context, name string, keys []rocket.Key) error {
	rev := uuid.New()
	data := rocket.EncodeKeys(keys)

	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sync_tracks (name, revision, key_count, keys, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (name) DO UPDATE
			 SET revision = EXCLUDED.revision, key_count = EXCLUDED.key_count,
			     keys = EXCLUDED.keys, updated_at = EXCLUDED.updated_at`,
			name, rev.String(), len(keys), data,
		); err != nil {
			return fmt.Errorf("track upsert %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO sync_track_revisions (revision, name, key_count, keys)
			 VALUES ($1, $2, $3, $4)`,
			rev.String(), name, len(keys), data,
		); err != nil {
			return fmt.Errorf("track revision %s: %w", name, err)
		}
		return nil
	})
}

// Load returns the stored track, nil when there is none.
func (r *TrackRepo) Load(ctx context.Context, name string) (*TrackRow, error) {
	var (
		rev  string
		data []byte
		row  = &TrackRow{Name: name}
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT revision::text, keys, updated_at FROM sync_tracks WHERE name = $1`, name,
	).Scan(&rev, &data, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.Revision, err = uuid.Parse(rev); err != nil {
		return nil, fmt.Errorf("track %s revision: %w", name, err)
	}
	if row.Keys, err = rocket.DecodeKeys(data); err != nil {
		return nil, fmt.Errorf("track %s: %w", name, err)
	}
	return row, nil
}

// Names lists stored tracks by name.
func (r *TrackRepo) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM sync_tracks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Revisions returns up to limit past saves of a track, newest first.
func (r *TrackRepo) Revisions(ctx context.Context, name string, limit int) ([]RevisionRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT revision::text, name, key_count, created_at
		 FROM sync_track_revisions WHERE name = $1
		 ORDER BY created_at DESC LIMIT $2`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevisionRow
	for rows.Next() {
		var (
			rev string
			row RevisionRow
		)
		if err := rows.Scan(&rev, &row.Name, &row.KeyCount, &row.CreatedAt); err != nil {
			return nil, err
		}
		if row.Revision, err = uuid.Parse(rev); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadInto replaces the keys of every stored track on the device and
// returns how many tracks were loaded.
func (r *TrackRepo) LoadInto(ctx context.Context, dev *rocket.Device) (int, error) {
	names, err := r.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tracks: %w", err)
	}
	n := 0
	for _, name := range names {
		row, err := r.Load(ctx, name)
		if err != nil {
			return n, err
		}
		if row == nil {
			continue
		}
		dev.Track(name).SetKeys(row.Keys)
		n++
	}
	return n, nil
}
