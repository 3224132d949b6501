package provisioning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
	txcontext "sigrh/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresProfiles persists platform accounts. The central-authority
// singleton rests on the partial unique index
//
//	CREATE UNIQUE INDEX ... ON profiles (ministry_id)
//	WHERE role = 'central_authority' AND active
//
// so two concurrent promotions cannot both commit: the loser's insert or
// update fails with 23505, surfaced here as sentinel.ErrConflict.
type PostgresProfiles struct {
	db *sql.DB
}

func NewPostgresProfiles(db *sql.DB) *PostgresProfiles {
	return &PostgresProfiles{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

const profileColumns = `id, email, full_name, role, ministry_id, active, created_at, updated_at`

func (s *PostgresProfiles) Create(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		profile.ID, profile.Email, profile.FullName, string(profile.Role),
		profile.MinistryID, profile.Active, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("profile %s: %w", profile.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresProfiles) GetByID(ctx context.Context, profileID id.ProfileID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	profile, err := scanProfile(execer(ctx, s.db).QueryRowContext(ctx, query, profileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", profileID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfiles) Execute(ctx context.Context, profileID id.ProfileID, validate func(*Profile) error, mutate func(*Profile)) (*Profile, error) {
	exec := execer(ctx, s.db)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1 FOR UPDATE`
	profile, err := scanProfile(exec.QueryRowContext(ctx, query, profileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", profileID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("lock profile: %w", err)
	}

	if err := validate(profile); err != nil {
		return nil, err
	}
	mutate(profile)

	update := `
		UPDATE profiles
		SET email = $2, full_name = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	_, err = exec.ExecContext(ctx, update,
		profile.ID, profile.Email, profile.FullName, string(profile.Role), profile.Active, profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("profile %s: %w", profile.ID, sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfiles) FindActiveAuthority(ctx context.Context, ministryID id.MinistryID) (*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE ministry_id = $1 AND role = 'central_authority' AND active
	`
	profile, err := scanProfile(execer(ctx, s.db).QueryRowContext(ctx, query, ministryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active authority for ministry %s: %w", ministryID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find active authority: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfiles) ListByRole(ctx context.Context, ministryID id.MinistryID, role Role) ([]*Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE ministry_id = $1 AND role = $2 AND active
		ORDER BY created_at
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, ministryID, string(role))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}

func (s *PostgresProfiles) CountByRole(ctx context.Context, ministryID id.MinistryID, role Role) (int, error) {
	query := `SELECT COUNT(*) FROM profiles WHERE ministry_id = $1 AND role = $2 AND active`
	var count int
	if err := execer(ctx, s.db).QueryRowContext(ctx, query, ministryID, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var role string
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &p.MinistryID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Role = Role(role)
	return &p, nil
}

// PostgresLocks persists authority lock records. Rows are append-only;
// there is no update or delete path.
type PostgresLocks struct {
	db *sql.DB
}

func NewPostgresLocks(db *sql.DB) *PostgresLocks {
	return &PostgresLocks{db: db}
}

func (s *PostgresLocks) Append(ctx context.Context, lock *AuthorityLock) error {
	query := `
		INSERT INTO authority_locks
			(id, ministry_id, previous_authority_id, locked_by, reason, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		lock.ID, lock.MinistryID, lock.PreviousAuthorityID, lock.LockedBy,
		lock.Reason, lock.Active, lock.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append authority lock: %w", err)
	}
	return nil
}

func (s *PostgresLocks) ListByMinistry(ctx context.Context, ministryID id.MinistryID) ([]*AuthorityLock, error) {
	query := `
		SELECT id, ministry_id, previous_authority_id, locked_by, reason, active, created_at
		FROM authority_locks
		WHERE ministry_id = $1
		ORDER BY created_at
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, ministryID)
	if err != nil {
		return nil, fmt.Errorf("list authority locks: %w", err)
	}
	defer rows.Close()

	var out []*AuthorityLock
	for rows.Next() {
		var l AuthorityLock
		if err := rows.Scan(&l.ID, &l.MinistryID, &l.PreviousAuthorityID, &l.LockedBy, &l.Reason, &l.Active, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan authority lock: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
