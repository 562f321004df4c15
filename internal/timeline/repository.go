package timeline

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Repository is the authoritative clip store. List order is insertion order
// and carries no meaning; display order is derived from track and placement.
// Missing ids are benign: Get returns (nil, nil), Update and Delete no-op.
type Repository interface {
	CreateClip(ctx context.Context, clip *Clip) error
	GetClip(ctx context.Context, id string) (*Clip, error)
	ListClips(ctx context.Context) ([]*Clip, error)
	UpdateClip(ctx context.Context, id string, update ClipUpdate) error
	DeleteClip(ctx context.Context, id string) error
	CountClips(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const clipColumns = `id, source_handle, kind, display_name, source_duration,
	timeline_start, track, trim_start, trim_end, volume, muted, created_at`

func (r *SQLiteRepository) CreateClip(ctx context.Context, c *Clip) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clips (id, source_handle, kind, display_name, source_duration,
			timeline_start, track, trim_start, trim_end, volume, muted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SourceHandle, c.Kind, c.DisplayName, c.SourceDuration,
		c.TimelineStart, c.Track, c.TrimStart, c.TrimEnd, c.Volume,
		boolToInt(c.Muted), c.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) GetClip(ctx context.Context, id string) (*Clip, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clipColumns+` FROM clips WHERE id = ?
	`, id)
	return scanClip(row)
}

func scanClip(row *sql.Row) (*Clip, error) {
	var c Clip
	var muted int
	var createdAt string

	err := row.Scan(&c.ID, &c.SourceHandle, &c.Kind, &c.DisplayName, &c.SourceDuration,
		&c.TimelineStart, &c.Track, &c.TrimStart, &c.TrimEnd, &c.Volume, &muted, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Muted = muted == 1
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}

func (r *SQLiteRepository) ListClips(ctx context.Context) ([]*Clip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clipColumns+` FROM clips ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		var c Clip
		var muted int
		var createdAt string

		if err := rows.Scan(&c.ID, &c.SourceHandle, &c.Kind, &c.DisplayName, &c.SourceDuration,
			&c.TimelineStart, &c.Track, &c.TrimStart, &c.TrimEnd, &c.Volume, &muted, &createdAt); err != nil {
			return nil, err
		}
		c.Muted = muted == 1
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		clips = append(clips, &c)
	}
	return clips, rows.Err()
}

// UpdateClip merges only the fields the update carries. An empty update or
// an absent id is a no-op, not an error.
func (r *SQLiteRepository) UpdateClip(ctx context.Context, id string, u ClipUpdate) error {
	var sets []string
	var args []any

	if u.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *u.DisplayName)
	}
	if u.TimelineStart != nil {
		sets = append(sets, "timeline_start = ?")
		args = append(args, *u.TimelineStart)
	}
	if u.Track != nil {
		sets = append(sets, "track = ?")
		args = append(args, *u.Track)
	}
	if u.TrimStart != nil {
		sets = append(sets, "trim_start = ?")
		args = append(args, *u.TrimStart)
	}
	if u.TrimEnd != nil {
		sets = append(sets, "trim_end = ?")
		args = append(args, *u.TrimEnd)
	}
	if u.Volume != nil {
		sets = append(sets, "volume = ?")
		args = append(args, *u.Volume)
	}
	if u.Muted != nil {
		sets = append(sets, "muted = ?")
		args = append(args, boolToInt(*u.Muted))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	_, err := r.db.ExecContext(ctx,
		"UPDATE clips SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

func (r *SQLiteRepository) DeleteClip(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM clips WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountClips(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clips").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
