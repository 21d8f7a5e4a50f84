package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		url                  TEXT PRIMARY KEY,
		status               TEXT NOT NULL DEFAULT 'online',
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_error           TEXT,
		last_downtime        INTEGER,
		last_checked         INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id        TEXT PRIMARY KEY,
		url       TEXT NOT NULL,
		starts_at INTEGER NOT NULL,
		ends_at   INTEGER,
		error     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS incidents_url_starts_at ON incidents (url, starts_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS incidents_open ON incidents (url) WHERE ends_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS status_events (
		seq    INTEGER PRIMARY KEY AUTOINCREMENT,
		url    TEXT NOT NULL,
		status TEXT NOT NULL,
		at     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS status_events_url ON status_events (url, seq)`,
	`CREATE TABLE IF NOT EXISTS downtime_log (
		seq   INTEGER PRIMARY KEY AUTOINCREMENT,
		url   TEXT NOT NULL,
		at    INTEGER NOT NULL,
		error TEXT
	)`,
}

// SQLite is a Store backed by a SQLite database file.
// Timestamps are stored as unix nanoseconds.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates a database file, and prepares tables.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	for _, q := range sqliteSchema {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to prepare database: %w", err)
		}
	}
	return nil
}

// Path returns path to the database file.
func (s *SQLite) Path() string {
	return s.path
}

func toUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromUnix(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(0, n.Int64).UTC()
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (api.Site, error) {
	var (
		site     api.Site
		status   string
		lastErr  sql.NullString
		downtime sql.NullInt64
		checked  sql.NullInt64
	)
	if err := row.Scan(&site.URL, &status, &site.ConsecutiveFailures, &lastErr, &downtime, &checked); err != nil {
		return api.Site{}, err
	}

	var err error
	if site.Status, err = api.ParseStatus(status); err != nil {
		return api.Site{}, err
	}
	site.LastError = api.ErrorCode(lastErr.String)
	site.LastDowntimeAt = fromUnix(downtime)
	site.LastCheckedAt = fromUnix(checked)
	return site, nil
}

const incidentColumns = `id, url, starts_at, ends_at, error`

func scanIncident(row scanner) (api.Incident, error) {
	var (
		inc    api.Incident
		starts int64
		ends   sql.NullInt64
		code   sql.NullString
	)
	if err := row.Scan(&inc.ID, &inc.Target, &starts, &ends, &code); err != nil {
		return api.Incident{}, err
	}
	inc.StartsAt = time.Unix(0, starts).UTC()
	inc.EndsAt = fromUnix(ends)
	inc.Error = api.ErrorCode(code.String)
	return inc, nil
}

func queryIncidents(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]api.Incident, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var xs []api.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("invalid incident row: %w", err)
		}
		xs = append(xs, inc)
	}
	return xs, rows.Err()
}

type sqliteTx struct {
	ctx    context.Context
	tx     *sql.Tx
	target string
}

func (tx *sqliteTx) Site() (api.Site, error) {
	row := tx.tx.QueryRowContext(tx.ctx, `
		SELECT url, status, consecutive_failures, last_error, last_downtime, last_checked
		FROM sites
		WHERE url = ?`, tx.target)

	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return api.NewSite(tx.target), nil
	}
	if err != nil {
		return api.Site{}, fmt.Errorf("failed to read site: %w", err)
	}
	return site, nil
}

func (tx *sqliteTx) PutSite(s api.Site) error {
	if s.URL != tx.target {
		return ErrTargetMismatch
	}

	_, err := tx.tx.ExecContext(tx.ctx, `
		INSERT INTO sites (url, status, consecutive_failures, last_error, last_downtime, last_checked)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			status = excluded.status,
			consecutive_failures = excluded.consecutive_failures,
			last_error = excluded.last_error,
			last_downtime = excluded.last_downtime,
			last_checked = excluded.last_checked`,
		s.URL, s.Status.String(), s.ConsecutiveFailures, toNullString(string(s.LastError)), toUnix(s.LastDowntimeAt), toUnix(s.LastCheckedAt))
	if err != nil {
		return fmt.Errorf("failed to write site: %w", err)
	}
	return nil
}

func (tx *sqliteTx) openIncident() (api.Incident, bool, error) {
	row := tx.tx.QueryRowContext(tx.ctx, `SELECT `+incidentColumns+` FROM incidents WHERE url = ? AND ends_at IS NULL`, tx.target)

	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Incident{}, false, nil
	}
	if err != nil {
		return api.Incident{}, false, fmt.Errorf("failed to read open incident: %w", err)
	}
	return inc, true, nil
}

func (tx *sqliteTx) OpenIncident(at time.Time, code api.ErrorCode) (api.Incident, error) {
	if _, ok, err := tx.openIncident(); err != nil {
		return api.Incident{}, err
	} else if ok {
		return api.Incident{}, ErrIncidentAlreadyOpen
	}

	inc, err := newIncident(tx.target, at, code)
	if err != nil {
		return api.Incident{}, err
	}

	_, err = tx.tx.ExecContext(tx.ctx, `
		INSERT INTO incidents (id, url, starts_at, ends_at, error)
		VALUES (?, ?, ?, NULL, ?)`,
		inc.ID, inc.Target, inc.StartsAt.UnixNano(), toNullString(string(inc.Error)))
	if err != nil {
		return api.Incident{}, fmt.Errorf("failed to write incident: %w", err)
	}
	return inc, nil
}

func (tx *sqliteTx) CloseOpenIncident(at time.Time) (api.Incident, bool, error) {
	inc, ok, err := tx.openIncident()
	if err != nil || !ok {
		return api.Incident{}, false, err
	}

	closed, err := inc.Close(at)
	if err != nil {
		return api.Incident{}, true, err
	}

	_, err = tx.tx.ExecContext(tx.ctx, `UPDATE incidents SET ends_at = ? WHERE id = ?`, closed.EndsAt.UnixNano(), closed.ID)
	if err != nil {
		return api.Incident{}, true, fmt.Errorf("failed to close incident: %w", err)
	}
	return closed, true, nil
}

func (tx *sqliteTx) AppendStatusEvent(e api.StatusEvent) error {
	if e.Target != tx.target {
		return ErrTargetMismatch
	}

	_, err := tx.tx.ExecContext(tx.ctx, `INSERT INTO status_events (url, status, at) VALUES (?, ?, ?)`, e.Target, e.Status.String(), e.Time.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write status event: %w", err)
	}
	return nil
}

func (tx *sqliteTx) AppendDowntime(e api.DowntimeEntry) error {
	if e.Target != tx.target {
		return ErrTargetMismatch
	}

	_, err := tx.tx.ExecContext(tx.ctx, `INSERT INTO downtime_log (url, at, error) VALUES (?, ?, ?)`, e.Target, e.Time.UnixNano(), toNullString(string(e.Error)))
	if err != nil {
		return fmt.Errorf("failed to write downtime log: %w", err)
	}
	return nil
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, target string, fn func(Tx) error) error {
	if target == "" {
		return api.ErrEmptyTarget
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{ctx: ctx, tx: tx, target: target}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) Site(ctx context.Context, target string) (api.Site, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT url, status, consecutive_failures, last_error, last_downtime, last_checked
		FROM sites
		WHERE url = ?`, target)

	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Site{}, false, nil
	}
	if err != nil {
		return api.Site{}, false, fmt.Errorf("failed to read site: %w", err)
	}
	return site, true, nil
}

func (s *SQLite) Sites(ctx context.Context) ([]api.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, status, consecutive_failures, last_error, last_downtime, last_checked
		FROM sites
		ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var xs []api.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("invalid site row: %w", err)
		}
		xs = append(xs, site)
	}
	return xs, rows.Err()
}

func (s *SQLite) IncidentsOverlapping(ctx context.Context, target string, since, until time.Time) ([]api.Incident, error) {
	return queryIncidents(ctx, s.db, `
		SELECT `+incidentColumns+`
		FROM incidents
		WHERE url = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?)
		ORDER BY starts_at, id`,
		target, until.UnixNano(), since.UnixNano())
}

func (s *SQLite) RecentIncidents(ctx context.Context, limit int) ([]api.Incident, error) {
	if limit < 1 {
		limit = -1
	}
	return queryIncidents(ctx, s.db, `
		SELECT `+incidentColumns+`
		FROM incidents
		ORDER BY starts_at DESC, id DESC
		LIMIT ?`, limit)
}

func (s *SQLite) RecentDowntimes(ctx context.Context, limit int) ([]api.DowntimeEntry, error) {
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, at, error
		FROM downtime_log
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downtime log: %w", err)
	}
	defer rows.Close()

	var xs []api.DowntimeEntry
	for rows.Next() {
		var (
			e    api.DowntimeEntry
			at   int64
			code sql.NullString
		)
		if err := rows.Scan(&e.Target, &at, &code); err != nil {
			return nil, fmt.Errorf("invalid downtime log row: %w", err)
		}
		e.Time = time.Unix(0, at).UTC()
		e.Error = api.ErrorCode(code.String)
		xs = append(xs, e)
	}
	return xs, rows.Err()
}

func (s *SQLite) StatusEvents(ctx context.Context, target string, since time.Time) ([]api.StatusEvent, error) {
	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, at
		FROM status_events
		WHERE url = ? AND at >= ?
		ORDER BY seq`, target, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query status events: %w", err)
	}
	defer rows.Close()

	var xs []api.StatusEvent
	for rows.Next() {
		var (
			status string
			at     int64
		)
		if err := rows.Scan(&status, &at); err != nil {
			return nil, fmt.Errorf("invalid status event row: %w", err)
		}
		st, err := api.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		xs = append(xs, api.StatusEvent{Target: target, Status: st, Time: time.Unix(0, at).UTC()})
	}
	return xs, rows.Err()
}

func (s *SQLite) IncidentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count incidents: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
