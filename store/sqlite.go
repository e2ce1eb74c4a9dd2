package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
	_ "modernc.org/sqlite"
)

const DefaultPath = "aware_screen"

// Row is one stored record awaiting upload.
type Row struct {
	ID        int64
	Timestamp int64
	DeviceID  string
	Data      json.RawMessage
}

// SQLite stores records of every table in a single WAL-mode database.
type SQLite struct {
	db       *sql.DB
	path     string
	uploader *Uploader
	inflight cmap.ConcurrentMap[string, struct{}]
}

// OpenSQLite opens or creates the database at path and migrates it. A nil
// uploader makes StartSync a no-op.
func OpenSQLite(ctx context.Context, path string, uploader *Uploader) (*SQLite, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to determine database path: %w", err)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps :memory: databases on a single connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLite{
		db:       db,
		path:     path,
		uploader: uploader,
		inflight: cmap.New[struct{}](),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	lg.Debug("database opened", "path", path)
	return s, nil
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Save(ctx context.Context, obj Object, table string) error {
	meta := obj.Meta()
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (table_name, timestamp, device_id, data) VALUES (?, ?, ?, ?)`,
		table, meta.Timestamp, meta.DeviceID, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// Pending returns up to limit unsynced rows of table, oldest first.
func (s *SQLite) Pending(ctx context.Context, table string, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, device_id, data FROM records
		WHERE table_name = ? AND synced = 0
		ORDER BY id
		LIMIT ?`, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var data string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.DeviceID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Data = json.RawMessage(data)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE records SET synced = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark rows synced: %w", err)
	}
	return nil
}

// Count returns the number of rows stored for table.
func (s *SQLite) Count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE table_name = ?`, table).Scan(&n)
	return n, err
}

// StartSync uploads every pending row of table in batches. Rows are marked
// synced batch by batch, so a failure leaves only the failing batch and
// its successors pending.
func (s *SQLite) StartSync(ctx context.Context, table string) error {
	if s.uploader == nil {
		lg.Debug("no sync host configured, skipping sync", "table", table)
		return nil
	}
	if !s.inflight.SetIfAbsent(table, struct{}{}) {
		return ErrSyncInProgress
	}
	defer s.inflight.Remove(table)

	total := 0
	for {
		batch, err := s.Pending(ctx, table, s.uploader.BatchSize())
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		if err := s.uploader.Upload(ctx, table, batch); err != nil {
			return fmt.Errorf("failed to sync %s: %w", table, err)
		}

		ids := make([]int64, len(batch))
		for i, r := range batch {
			ids[i] = r.ID
		}
		if err := s.MarkSynced(ctx, ids); err != nil {
			return err
		}
		total += len(batch)

		if len(batch) < s.uploader.BatchSize() {
			break
		}
	}

	lg.Info("sync finished", "table", table, "rows", total)
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func resolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	if path == ":memory:" {
		return path, nil
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	if filepath.Ext(path) == "" {
		path += ".db"
	}

	if !filepath.IsAbs(path) {
		dir, err := dataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, path)
	}
	return path, nil
}

func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "goscreen"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "goscreen"), nil
}
