package generation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	recordCache *lru.Cache[string, Record]
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	cache, err := lru.New[string, Record](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{
		db:          db,
		recordCache: cache,
	}, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    video_key TEXT NOT NULL DEFAULT '',
    audio_key TEXT NOT NULL DEFAULT '',
    video_url TEXT NOT NULL DEFAULT '',
    audio_url TEXT NOT NULL DEFAULT '',
    output_url TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at DESC);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO generations (id, model, status, video_key, audio_key, video_url, audio_url, output_url, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id)
DO UPDATE SET model=EXCLUDED.model, status=EXCLUDED.status,
    video_key=EXCLUDED.video_key, audio_key=EXCLUDED.audio_key,
    video_url=EXCLUDED.video_url, audio_url=EXCLUDED.audio_url,
    output_url=EXCLUDED.output_url, error=EXCLUDED.error, updated_at=EXCLUDED.updated_at
`, rec.ID, rec.Model, rec.Status, rec.VideoKey, rec.AudioKey, rec.VideoURL, rec.AudioURL, rec.OutputURL, rec.Error, rec.CreatedAt, now)
	if err == nil && s.recordCache != nil {
		s.recordCache.Remove(rec.ID)
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("record id is required")
	}
	if s.recordCache != nil {
		if cached, ok := s.recordCache.Get(id); ok {
			return cached, nil
		}
	}
	if err := s.ensureSchema(); err != nil {
		return Record{}, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecordSQL+` WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if s.recordCache != nil {
		s.recordCache.Add(id, rec)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, selectRecordSQL+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status, outputURL, errMsg string) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("record id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return Record{}, err
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `
UPDATE generations SET
    status = CASE WHEN $2 <> '' THEN $2 ELSE status END,
    output_url = CASE WHEN $3 <> '' THEN $3 ELSE output_url END,
    error = CASE WHEN $4 <> '' THEN $4 ELSE error END,
    updated_at = NOW()
WHERE id=$1
RETURNING id, model, status, video_key, audio_key, video_url, audio_url, output_url, error, created_at, updated_at`,
		id, strings.TrimSpace(status), strings.TrimSpace(outputURL), strings.TrimSpace(errMsg)))
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if s.recordCache != nil {
		s.recordCache.Remove(id)
	}
	return rec, nil
}

const selectRecordSQL = `SELECT id, model, status, video_key, audio_key, video_url, audio_url, output_url, error, created_at, updated_at FROM generations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Model, &rec.Status, &rec.VideoKey, &rec.AudioKey,
		&rec.VideoURL, &rec.AudioURL, &rec.OutputURL, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
