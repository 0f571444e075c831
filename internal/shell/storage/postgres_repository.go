package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"nestling-tracker/internal/config"
	"nestling-tracker/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenPostgres connects to the configured Postgres database, applies
// pending migrations and returns the shared handle.
func OpenPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	zap.S().Debugf("Postgres database ready at %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	return db, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

type PostgresChildRepository struct {
	db *sql.DB
}

func NewPostgresChildRepository(db *sql.DB) *PostgresChildRepository {
	return &PostgresChildRepository{db: db}
}

func (r *PostgresChildRepository) Save(child domain.Child) error {
	query := `
		INSERT INTO children (id, family_id, name, birth_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			family_id = EXCLUDED.family_id, name = EXCLUDED.name,
			birth_date = EXCLUDED.birth_date, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(query, child.ID, child.FamilyID, child.Name,
		child.BirthDate, child.CreatedAt, child.UpdatedAt)
	return err
}

func (r *PostgresChildRepository) FindByID(id string) (domain.Child, error) {
	var child domain.Child
	err := r.db.QueryRow(`SELECT id, family_id, name, birth_date, created_at, updated_at
		FROM children WHERE id = $1`, id).
		Scan(&child.ID, &child.FamilyID, &child.Name, &child.BirthDate, &child.CreatedAt, &child.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Child{}, domain.ErrChildNotFound
	}
	if err != nil {
		return domain.Child{}, err
	}
	return child, nil
}

func (r *PostgresChildRepository) FindByFamilyID(familyID string) ([]domain.Child, error) {
	rows, err := r.db.Query(`SELECT id, family_id, name, birth_date, created_at, updated_at
		FROM children WHERE family_id = $1 ORDER BY created_at`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make([]domain.Child, 0)
	for rows.Next() {
		var child domain.Child
		if err := rows.Scan(&child.ID, &child.FamilyID, &child.Name,
			&child.BirthDate, &child.CreatedAt, &child.UpdatedAt); err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

func (r *PostgresChildRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM children WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrChildNotFound
	}
	return nil
}

type PostgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Save(event domain.CareEvent) error {
	query := `
		INSERT INTO care_events (id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at, amount = EXCLUDED.amount, unit = EXCLUDED.unit,
			diaper_kind = EXCLUDED.diaper_kind, notes = EXCLUDED.notes`

	_, err := r.db.Exec(query, event.ID, event.ChildID, string(event.Type),
		event.StartedAt, event.EndedAt, event.Amount, event.Unit,
		string(event.DiaperKind), event.Notes, event.CreatedAt)
	return err
}

func (r *PostgresEventRepository) FindByID(id string) (domain.CareEvent, error) {
	row := r.db.QueryRow(`SELECT id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at
		FROM care_events WHERE id = $1`, id)
	event, err := scanPostgresEvent(row)
	if err == sql.ErrNoRows {
		return domain.CareEvent{}, domain.ErrEventNotFound
	}
	return event, err
}

// FindByChildID returns the filtered page, newest events first, together
// with the total number of events matching the filter.
func (r *PostgresEventRepository) FindByChildID(childID string, filter domain.EventFilter) ([]domain.CareEvent, int, error) {
	where := []string{"child_id = $1"}
	args := []interface{}{childID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("started_at <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM care_events WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, child_id, type, started_at, ended_at, amount, unit, diaper_kind, notes, created_at
		FROM care_events WHERE ` + whereClause + ` ORDER BY started_at DESC, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]domain.CareEvent, 0)
	for rows.Next() {
		event, err := scanPostgresEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, total, rows.Err()
}

func (r *PostgresEventRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM care_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *PostgresEventRepository) DeleteByChildID(childID string) error {
	_, err := r.db.Exec(`DELETE FROM care_events WHERE child_id = $1`, childID)
	return err
}

func scanPostgresEvent(row rowScanner) (domain.CareEvent, error) {
	var event domain.CareEvent
	var eventType, diaperKind string

	err := row.Scan(&event.ID, &event.ChildID, &eventType, &event.StartedAt, &event.EndedAt,
		&event.Amount, &event.Unit, &diaperKind, &event.Notes, &event.CreatedAt)
	if err != nil {
		return domain.CareEvent{}, err
	}

	event.Type = domain.EventType(eventType)
	event.DiaperKind = domain.DiaperKind(diaperKind)
	return event, nil
}
