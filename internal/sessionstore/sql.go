package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hlong026/WeKnow-design/internal/session"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore keeps snapshots in a session_snapshots table keyed by profile.
type SQLStore struct {
	db      *sql.DB
	driver  string
	profile string
}

// OpenSQL initializes the datastore using the supplied DSN/file path and driver.
func OpenSQL(dsn, driver, profile string) (*SQLStore, error) {
	if driver == "" {
		driver = "sqlite"
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("session store DSN is required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create datastore directory: %w", err)
		}
		conn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dsn)
		db, err = sql.Open("sqlite", conn)
	case "postgres":
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported datastore driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s datastore: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver, profile: profile}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	var stmts []string
	if s.driver == "sqlite" {
		stmts = append(stmts, `PRAGMA journal_mode=WAL;`)
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS session_snapshots (
			profile TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		);`,
	)
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema apply failed: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close shuts down the datastore.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Load(ctx context.Context) (*session.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT payload FROM session_snapshots WHERE profile=?`), s.profile)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNoSnapshot
		}
		return nil, err
	}
	return session.DecodeSnapshot([]byte(payload))
}

func (s *SQLStore) Save(ctx context.Context, snap *session.Snapshot) error {
	payload, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO session_snapshots (profile, session_id, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET session_id=excluded.session_id, payload=excluded.payload, saved_at=excluded.saved_at`),
		s.profile, snap.SessionID, string(payload), savedAt,
	)
	return err
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM session_snapshots WHERE profile=?`), s.profile)
	return err
}
