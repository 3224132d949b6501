package agent

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

// PostgresStore persists agent records. Execute relies on
// SELECT ... FOR UPDATE, so services must call it inside a transaction
// (pkg/platform/tx); outside one the row lock would be released
// immediately and concurrent transitions could interleave.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const agentColumns = `
	id, matricule, first_name, last_name, ministry_id,
	corps_id, grade_id, pay_scale_id, step_id,
	status, submitted_at, validated_by, validated_at, rejection_reason,
	profile_id, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, agent *Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		agent.ID, agent.Matricule, agent.FirstName, agent.LastName, agent.MinistryID,
		agent.CorpsID, agent.GradeID, agent.PayScaleID, agent.StepID,
		string(agent.Status), agent.SubmittedAt, agent.ValidatedBy, agent.ValidatedAt, nullIfEmpty(agent.RejectionReason),
		agent.ProfileID, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("agent %s: %w", agent.Matricule, sentinel.ErrConflict)
		}
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, agentID id.AgentID) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	agent, err := scanAgent(s.execer(ctx).QueryRowContext(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (s *PostgresStore) Execute(ctx context.Context, agentID id.AgentID, validate func(*Agent) error, mutate func(*Agent)) (*Agent, error) {
	exec := s.execer(ctx)
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 FOR UPDATE`
	agent, err := scanAgent(exec.QueryRowContext(ctx, query, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("lock agent: %w", err)
	}

	if err := validate(agent); err != nil {
		return nil, err
	}
	mutate(agent)

	update := `
		UPDATE agents
		SET status = $2, submitted_at = $3, validated_by = $4, validated_at = $5,
		    rejection_reason = $6, profile_id = $7, updated_at = $8
		WHERE id = $1
	`
	_, err = exec.ExecContext(ctx, update,
		agent.ID, string(agent.Status), agent.SubmittedAt, agent.ValidatedBy, agent.ValidatedAt,
		nullIfEmpty(agent.RejectionReason), agent.ProfileID, agent.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return agent, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, ministryID id.MinistryID, status Status) ([]*Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE ministry_id = $1 AND status = $2
		ORDER BY submitted_at NULLS LAST, created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, ministryID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, agent)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LinkProfile(ctx context.Context, agentID id.AgentID, profileID id.ProfileID) error {
	query := `UPDATE agents SET profile_id = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, agentID, profileID)
	if err != nil {
		return fmt.Errorf("link profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link profile: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("agent %s: %w", agentID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CountByMinistry(ctx context.Context, ministryID id.MinistryID) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE ministry_id = $1`, ministryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	var status string
	var submittedAt, validatedAt sql.NullTime
	var validatedBy, profileID sql.NullString
	var rejectionReason sql.NullString
	err := row.Scan(
		&a.ID, &a.Matricule, &a.FirstName, &a.LastName, &a.MinistryID,
		&a.CorpsID, &a.GradeID, &a.PayScaleID, &a.StepID,
		&status, &submittedAt, &validatedBy, &validatedAt, &rejectionReason,
		&profileID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if submittedAt.Valid {
		t := submittedAt.Time
		a.SubmittedAt = &t
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		a.ValidatedAt = &t
	}
	if validatedBy.Valid {
		parsed, err := id.ParseProfileID(validatedBy.String)
		if err != nil {
			return nil, fmt.Errorf("agent %s has malformed validator reference: %w", a.ID, err)
		}
		a.ValidatedBy = &parsed
	}
	if profileID.Valid {
		parsed, err := id.ParseProfileID(profileID.String)
		if err != nil {
			return nil, fmt.Errorf("agent %s has malformed profile reference: %w", a.ID, err)
		}
		a.ProfileID = &parsed
	}
	a.RejectionReason = rejectionReason.String
	return &a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
