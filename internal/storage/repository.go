package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"settlements/internal/core"
	"settlements/internal/month"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	// Fixed width so that text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const settlementColumns = `id, description, amount_pence, paid_by, owed_by, date, status, created_at, settled_at, version`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateSettlement inserts s as given; the caller assigns ID and metadata.
func (r *SQLiteRepository) CreateSettlement(ctx context.Context, s core.Settlement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (`+settlementColumns+`, month_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Description, s.Amount.Pence, s.PaidBy, s.OwedBy,
		s.Date.Format(dateLayout), string(s.Status), s.CreatedAt.UTC().Format(timeLayout),
		nullTime(s.SettledAt), s.Version, string(s.MonthKey()),
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	slog.DebugContext(ctx, "Settlement saved to SQLite",
		"id", s.ID,
		"amount_pence", s.Amount.Pence,
		"month", s.MonthKey())
	return nil
}

// GetSettlement returns core.ErrNotFound when id does not exist.
func (r *SQLiteRepository) GetSettlement(ctx context.Context, id string) (core.Settlement, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = ?`, id)
	s, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settlement{}, core.ErrNotFound
	}
	if err != nil {
		return core.Settlement{}, fmt.Errorf("get settlement %s: %w", id, err)
	}
	return s, nil
}

// ListByMonth returns the settlements filed under k, oldest date first.
func (r *SQLiteRepository) ListByMonth(ctx context.Context, k month.Key) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE month_key = ?
		ORDER BY date, created_at`, string(k))
	if err != nil {
		return nil, fmt.Errorf("list settlements for %s: %w", k, err)
	}
	return collectSettlements(rows)
}

// ListMonths returns every month that has at least one settlement, newest
// first.
func (r *SQLiteRepository) ListMonths(ctx context.Context) ([]month.Key, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT month_key FROM settlements ORDER BY month_key DESC`)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var out []month.Key
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		out = append(out, month.Key(k))
	}
	return out, rows.Err()
}

// UpdateSettlement writes s if the stored version still equals
// expectedVersion. A lost race returns core.ErrVersionConflict.
func (r *SQLiteRepository) UpdateSettlement(ctx context.Context, s core.Settlement, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE settlements
		SET description = ?, amount_pence = ?, paid_by = ?, owed_by = ?, date = ?, month_key = ?,
		    status = ?, settled_at = ?, version = ?
		WHERE id = ? AND version = ?`,
		s.Description, s.Amount.Pence, s.PaidBy, s.OwedBy, s.Date.Format(dateLayout), string(s.MonthKey()),
		string(s.Status), nullTime(s.SettledAt), s.Version,
		s.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update settlement %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update settlement %s: %w", s.ID, err)
	}
	if n == 0 {
		if _, err := r.GetSettlement(ctx, s.ID); errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return core.ErrVersionConflict
	}
	return nil
}

// SaveNotification stores n unless a notification for the same event
// already exists. It reports whether a row was inserted.
func (r *SQLiteRepository) SaveNotification(ctx context.Context, n core.Notification) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, event_id, settlement_id, kind, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		n.ID, n.EventID, n.SettlementID, string(n.Kind), n.Title, n.Body, n.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return affected > 0, nil
}

// ListNotifications returns the most recent notifications first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, settlement_id, kind, title, body, created_at
		FROM notifications ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			kind      string
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.EventID, &n.SettlementID, &kind, &n.Title, &n.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = core.NotificationKind(kind)
		if n.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse notification time: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListUnnotified returns settlements missing a notification they are owed,
// oldest first: every settlement needs a created notification and settled
// ones also need a settled notification.
func (r *SQLiteRepository) ListUnnotified(ctx context.Context, limit int) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+settlementColumns+` FROM settlements s
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.settlement_id = s.id AND n.kind = 'settlement_created'
		) OR (s.status = 'settled' AND NOT EXISTS (
			SELECT 1 FROM notifications n
			WHERE n.settlement_id = s.id AND n.kind = 'settlement_settled'
		))
		ORDER BY s.created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unnotified settlements: %w", err)
	}
	return collectSettlements(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row scanner) (core.Settlement, error) {
	var (
		s         core.Settlement
		date      string
		status    string
		createdAt string
		settledAt sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Description, &s.Amount.Pence, &s.PaidBy, &s.OwedBy,
		&date, &status, &createdAt, &settledAt, &s.Version); err != nil {
		return core.Settlement{}, err
	}

	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Settlement{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	s.Date = core.Date{Time: d}
	s.Status = core.Status(status)
	if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Settlement{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if settledAt.Valid {
		if s.SettledAt, err = time.Parse(timeLayout, settledAt.String); err != nil {
			return core.Settlement{}, fmt.Errorf("parse settled_at %q: %w", settledAt.String, err)
		}
	}
	return s, nil
}

func collectSettlements(rows *sql.Rows) ([]core.Settlement, error) {
	defer rows.Close()
	var out []core.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
