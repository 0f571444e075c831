package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

// OpenSQLite opens (creating if necessary) the tracker database at path
// and ensures the schema exists. The returned handle is shared by all
// SQLite repositories.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	zap.S().Debugf("SQLite database ready at %s", path)
	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS children (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    name TEXT NOT NULL,
    birth_date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_children_family_id ON children(family_id);

CREATE TABLE IF NOT EXISTS care_events (
    id TEXT PRIMARY KEY,
    child_id TEXT NOT NULL REFERENCES children(id),
    type TEXT NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT NULL,
    amount REAL NULL,
    unit TEXT NOT NULL DEFAULT '',
    diaper_kind TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_child_id ON care_events(child_id);
CREATE INDEX IF NOT EXISTS idx_events_child_type ON care_events(child_id, type);
CREATE INDEX IF NOT EXISTS idx_events_started_at ON care_events(started_at);

CREATE TABLE IF NOT EXISTS exports (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    username TEXT NOT NULL,
    format TEXT NOT NULL,
    task_id TEXT NOT NULL,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    result_download_url TEXT NULL,
    result_filename TEXT NULL,
    result_created_at TEXT NULL,
    result_expires_at TEXT NULL,
    error_message TEXT NULL,
    cancelled INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    completed_at TEXT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_family_id ON exports(family_id);
CREATE INDEX IF NOT EXISTS idx_exports_status ON exports(status);

CREATE TABLE IF NOT EXISTS export_schedules (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    username TEXT NOT NULL,
    format TEXT NOT NULL,
    schedule TEXT NOT NULL,
    timezone TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    last_run TEXT NULL,
    next_run_at TEXT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_family_id ON export_schedules(family_id);
CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON export_schedules(enabled);
`

// Timestamps are stored as RFC3339Nano strings so they round-trip exactly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

type SQLiteChildRepository struct {
	db *sql.DB
}

func NewSQLiteChildRepository(db *sql.DB) *SQLiteChildRepository {
	return &SQLiteChildRepository{db: db}
}

func (r *SQLiteChildRepository) Save(child domain.Child) error {
	query := `
		INSERT INTO children (id, family_id, name, birth_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			family_id = excluded.family_id, name = excluded.name,
			birth_date = excluded.birth_date, updated_at = excluded.updated_at`

	_, err := r.db.Exec(query, child.ID, child.FamilyID, child.Name,
		formatTime(child.BirthDate), formatTime(child.CreatedAt), formatTime(child.UpdatedAt))
	return err
}

func (r *SQLiteChildRepository) FindByID(id string) (domain.Child, error) {
	row := r.db.QueryRow(`SELECT id, family_id, name, birth_date, created_at, updated_at FROM children WHERE id = ?`, id)
	return scanChild(row)
}

func (r *SQLiteChildRepository) FindByFamilyID(familyID string) ([]domain.Child, error) {
	rows, err := r.db.Query(`SELECT id, family_id, name, birth_date, created_at, updated_at
		FROM children WHERE family_id = ? ORDER BY created_at`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make([]domain.Child, 0)
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

func (r *SQLiteChildRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrChildNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChild(row rowScanner) (domain.Child, error) {
	var child domain.Child
	var birthDate, createdAt, updatedAt string

	err := row.Scan(&child.ID, &child.FamilyID, &child.Name, &birthDate, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Child{}, domain.ErrChildNotFound
	}
	if err != nil {
		return domain.Child{}, err
	}

	child.BirthDate = parseTime(birthDate)
	child.CreatedAt = parseTime(createdAt)
	child.UpdatedAt = parseTime(updatedAt)
	return child, nil
}

type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Save(event domain.CareEvent) error {
	query := `
		INSERT INTO care_events (id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = excluded.ended_at, amount = excluded.amount, unit = excluded.unit,
			diaper_kind = excluded.diaper_kind, notes = excluded.notes`

	var amount interface{}
	if event.Amount != nil {
		amount = *event.Amount
	}

	_, err := r.db.Exec(query, event.ID, event.ChildID, string(event.Type),
		formatTime(event.StartedAt), formatTimePtr(event.EndedAt), amount,
		event.Unit, string(event.DiaperKind), event.Notes, formatTime(event.CreatedAt))
	return err
}

func (r *SQLiteEventRepository) FindByID(id string) (domain.CareEvent, error) {
	row := r.db.QueryRow(`SELECT id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at
		FROM care_events WHERE id = ?`, id)
	return scanEvent(row)
}

// FindByChildID returns the filtered page, newest events first, together
// with the total number of events matching the filter.
func (r *SQLiteEventRepository) FindByChildID(childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error) {
	where := []string{"child_id = ?"}
	args := []interface{}{childID}

	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.From != nil {
		where = append(where, "started_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "started_at <= ?")
		args = append(args, formatTime(*filter.To))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM care_events WHERE ` + whereClause
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at
		FROM care_events WHERE ` + whereClause + ` ORDER BY started_at DESC, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]domain.CareEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}

func (r *SQLiteEventRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM care_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *SQLiteEventRepository) DeleteByChildID(childID string) error {
	_, err := r.db.Exec(`DELETE FROM care_events WHERE child_id = ?`, childID)
	return err
}

func scanEvent(row rowScanner) (domain.CareEvent, error) {
	var event domain.CareEvent
	var eventType, diaperKind, startedAt, createdAt string
	var endedAt sql.NullString
	var amount sql.NullFloat64

	err := row.Scan(&event.ID, &event.ChildID, &eventType, &startedAt, &endedAt,
		&amount, &event.Unit, &diaperKind, &event.Notes, &createdAt)
	if err == sql.ErrNoRows {
		return domain.CareEvent{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.CareEvent{}, err
	}

	event.Type = domain.EventType(eventType)
	event.DiaperKind = domain.DiaperKind(diaperKind)
	event.StartedAt = parseTime(startedAt)
	event.EndedAt = parseTimePtr(endedAt)
	event.CreatedAt = parseTime(createdAt)
	if amount.Valid {
		event.Amount = &amount.Float64
	}
	return event, nil
}
