package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/reportcycle/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Repository serves every storage port.
var (
	_ domain.TenantRegistry     = (*Repository)(nil)
	_ domain.TimesheetSource    = (*Repository)(nil)
	_ domain.DispatchStateStore = (*Repository)(nil)
	_ domain.RevisionCounter    = (*Repository)(nil)
)

// Repository implements the tenant registry, the timesheet source, the
// dispatch state store and the revision counter on one SQLite database.
type Repository struct {
	db    *sql.DB
	clock quartz.Clock
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock used for updated_at stamps.
func WithClock(c quartz.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db, opts...)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB, opts ...Option) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	r := &Repository{db: db, clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *Repository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func (r *Repository) now() string {
	return r.clock.Now().UTC().Format(timeFormat)
}

const tenantColumns = `t.id, t.name, t.slug, t.contact_email, t.status, t.dispatch_day,
	d.last_dispatched_day, t.created_at, t.updated_at
	FROM tenants t LEFT JOIN dispatch_state d ON d.tenant_id = t.id`

func (r *Repository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, slug, contact_email, status, dispatch_day, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.ContactEmail, string(t.Status), t.DispatchDay,
		t.CreatedAt.UTC().Format(timeFormat),
		t.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SlugConflictError{Slug: t.Slug}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}

	if t.LastDispatchedDay != nil {
		return r.SetLastDispatched(ctx, t.ID, *t.LastDispatchedDay)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` WHERE t.id = ?`, id,
	))
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` WHERE t.slug = ?`, slug,
	))
}

// List returns tenants ordered by slug so that co-running chunks partition
// the same sequence.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns
	var args []any

	if filter.Status != nil {
		query += ` WHERE t.status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY t.slug`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// UpdateStatus changes the registry status of a tenant.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating tenant status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTenant scans one tenant row from either *sql.Row or *sql.Rows.
func scanTenant(row scanner) (domain.Tenant, error) {
	var t domain.Tenant
	var status, createdAt, updatedAt string
	var last sql.NullInt64

	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.ContactEmail, &status, &t.DispatchDay, &last, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Status = domain.Status(status)
	if last.Valid {
		day := int(last.Int64)
		t.LastDispatchedDay = &day
	}
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
