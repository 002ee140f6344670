package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgErrUniqueViolation = "23505"

// PgDirectory implements UserDirectory on PostgreSQL. Email uniqueness is
// enforced by a unique index on lower(email); concurrent duplicate inserts
// are serialized there and surface as ErrDuplicateEmail.
type PgDirectory struct {
	db *pgxpool.Pool
}

func NewPgDirectory(db *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{db: db}
}

// Connect opens a pgx connection pool with conservative defaults and
// validates connectivity before returning.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

const userColumns = `id, email, password_hash, first_name, last_name, role,
	phone_number, institution, grade, subject, active, last_login, created_at`

func scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role,
		&u.PhoneNumber, &u.Institution, &u.Grade, &u.Subject, &u.Active, &u.LastLogin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

func (d *PgDirectory) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(d.db.QueryRow(ctx, q, id))
}

func (d *PgDirectory) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	return scanUser(d.db.QueryRow(ctx, q, NormalizeEmail(email)))
}

func (d *PgDirectory) Insert(ctx context.Context, rec *UserRecord) error {
	const q = `INSERT INTO users
		(id, email, password_hash, first_name, last_name, role,
		 phone_number, institution, grade, subject, active, last_login, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := d.db.Exec(ctx, q,
		rec.ID, NormalizeEmail(rec.Email), rec.PasswordHash, rec.FirstName, rec.LastName, string(rec.Role),
		rec.PhoneNumber, rec.Institution, rec.Grade, rec.Subject, rec.Active, rec.LastLogin, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (d *PgDirectory) Update(ctx context.Context, id string, upd UserUpdate) (*UserRecord, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.PhoneNumber != nil {
		add("phone_number", *upd.PhoneNumber)
	}
	if upd.Institution != nil {
		add("institution", *upd.Institution)
	}
	if upd.Grade != nil {
		add("grade", *upd.Grade)
	}
	if upd.Subject != nil {
		add("subject", *upd.Subject)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}
	if upd.LastLogin != nil {
		add("last_login", *upd.LastLogin)
	}
	if len(sets) == 0 {
		return d.FindByID(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id=$%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args))
	return scanUser(d.db.QueryRow(ctx, q, args...))
}

func (d *PgDirectory) List(ctx context.Context, f UserListFilter, page, perPage int) ([]UserRecord, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	where := []string{"TRUE"}
	args := []interface{}{}
	if f.Role != "" {
		args = append(args, string(f.Role))
		where = append(where, fmt.Sprintf("role=$%d", len(args)))
	}
	if !f.IncludeInactive {
		where = append(where, "active")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	q := fmt.Sprintf(`SELECT `+userColumns+` FROM users WHERE %s
		ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))
	rows, err := d.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectUsers(rows, perPage)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (d *PgDirectory) Search(ctx context.Context, query string, role Role, limit int) ([]UserRecord, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	args := []interface{}{pattern}
	cond := `active AND (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR institution ILIKE $1)`
	if role != "" {
		args = append(args, string(role))
		cond += fmt.Sprintf(" AND role=$%d", len(args))
	}
	args = append(args, limit)
	q := fmt.Sprintf(`SELECT `+userColumns+` FROM users WHERE %s ORDER BY first_name LIMIT $%d`, cond, len(args))
	rows, err := d.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows, limit)
}

func (d *PgDirectory) CountByRole(ctx context.Context, role Role, activeOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM users WHERE role=$1`
	if activeOnly {
		q += ` AND active`
	}
	var n int
	if err := d.db.QueryRow(ctx, q, string(role)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *PgDirectory) ListByInstitution(ctx context.Context, role Role, institution string, limit int) ([]UserRecord, error) {
	if strings.TrimSpace(institution) == "" {
		return []UserRecord{}, nil
	}
	const q = `SELECT ` + userColumns + ` FROM users
		WHERE role=$1 AND active AND lower(institution)=lower($2)
		ORDER BY first_name LIMIT $3`
	rows, err := d.db.Query(ctx, q, string(role), strings.TrimSpace(institution), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows, limit)
}

func (d *PgDirectory) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE role='admin' LIMIT 1`
	var one int
	if err := d.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func collectUsers(rows pgx.Rows, capHint int) ([]UserRecord, error) {
	if capHint < 0 {
		capHint = 0
	}
	items := make([]UserRecord, 0, capHint)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}
