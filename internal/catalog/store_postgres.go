package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "sigrh/pkg/domain"
	"sigrh/pkg/platform/sentinel"
)

// PostgresStore reads classification reference data from PostgreSQL.
// Pure I/O: activity and link checks belong to the validator.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetCorps(ctx context.Context, corpsID id.CorpsID) (*Corps, error) {
	query := `
		SELECT id, code, name, category, active
		FROM corps
		WHERE id = $1
	`
	var c Corps
	err := s.db.QueryRowContext(ctx, query, corpsID.String()).
		Scan(&c.ID, &c.Code, &c.Name, &c.Category, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("corps %s: %w", corpsID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get corps: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetGrade(ctx context.Context, gradeID id.GradeID) (*Grade, error) {
	query := `
		SELECT id, code, name, ordinal, corps_id, active
		FROM grades
		WHERE id = $1
	`
	var g Grade
	var corpsID sql.NullString
	err := s.db.QueryRowContext(ctx, query, gradeID.String()).
		Scan(&g.ID, &g.Code, &g.Name, &g.Ordinal, &corpsID, &g.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grade %s: %w", gradeID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	if corpsID.Valid {
		parsed, err := id.ParseCorpsID(corpsID.String)
		if err != nil {
			return nil, fmt.Errorf("grade %s has malformed corps reference: %w", gradeID, err)
		}
		g.CorpsID = &parsed
	}
	return &g, nil
}

func (s *PostgresStore) GetPayScale(ctx context.Context, payScaleID id.PayScaleID) (*PayScale, error) {
	query := `
		SELECT id, code, name, category, grade_id, min_index, max_index, active
		FROM pay_scales
		WHERE id = $1
	`
	var p PayScale
	err := s.db.QueryRowContext(ctx, query, payScaleID.String()).
		Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.GradeID, &p.MinIndex, &p.MaxIndex, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pay scale %s: %w", payScaleID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get pay scale: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetStep(ctx context.Context, stepID id.StepID) (*Step, error) {
	query := `
		SELECT id, pay_scale_id, number, gross_index, increment_months, active
		FROM steps
		WHERE id = $1
	`
	var st Step
	err := s.db.QueryRowContext(ctx, query, stepID.String()).
		Scan(&st.ID, &st.PayScaleID, &st.Number, &st.GrossIndex, &st.IncrementMonths, &st.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("step %s: %w", stepID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get step: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) ListCorps(ctx context.Context) ([]*Corps, error) {
	query := `
		SELECT id, code, name, category, active
		FROM corps
		WHERE active
		ORDER BY category, name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list corps: %w", err)
	}
	defer rows.Close()

	var out []*Corps
	for rows.Next() {
		var c Corps
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Category, &c.Active); err != nil {
			return nil, fmt.Errorf("scan corps: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListGrades(ctx context.Context) ([]*Grade, error) {
	query := `
		SELECT id, code, name, ordinal, corps_id, active
		FROM grades
		WHERE active AND corps_id IS NULL
		ORDER BY ordinal DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var out []*Grade
	for rows.Next() {
		var g Grade
		var corpsID sql.NullString
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.Ordinal, &corpsID, &g.Active); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPayScales(ctx context.Context, category Category, gradeID id.GradeID) ([]*PayScale, error) {
	query := `
		SELECT id, code, name, category, grade_id, min_index, max_index, active
		FROM pay_scales
		WHERE active AND category = $1 AND grade_id = $2
		ORDER BY code
	`
	rows, err := s.db.QueryContext(ctx, query, string(category), gradeID.String())
	if err != nil {
		return nil, fmt.Errorf("list pay scales: %w", err)
	}
	defer rows.Close()

	var out []*PayScale
	for rows.Next() {
		var p PayScale
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.GradeID, &p.MinIndex, &p.MaxIndex, &p.Active); err != nil {
			return nil, fmt.Errorf("scan pay scale: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSteps(ctx context.Context, payScaleID id.PayScaleID) ([]*Step, error) {
	query := `
		SELECT id, pay_scale_id, number, gross_index, increment_months, active
		FROM steps
		WHERE active AND pay_scale_id = $1
		ORDER BY number DESC
	`
	rows, err := s.db.QueryContext(ctx, query, payScaleID.String())
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []*Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.ID, &st.PayScaleID, &st.Number, &st.GrossIndex, &st.IncrementMonths, &st.Active); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}
