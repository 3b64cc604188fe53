package repository

import (
	"context"
	"fmt"
	"time"

	"pdf-quiz/internal/database"
	"pdf-quiz/internal/domain"
	"pdf-quiz/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

// sqlxResultRepository implements domain.ResultRepository using sqlx.
type sqlxResultRepository struct {
	db *sqlx.DB
}

// NewSQLXResultRepository creates a result history backed by db. The schema must exist.
func NewSQLXResultRepository(db *sqlx.DB) domain.ResultRepository {
	return &sqlxResultRepository{db: db}
}

func toDomainQuizResult(m *models.QuizResult) *domain.QuizResult {
	if m == nil {
		return nil
	}
	return &domain.QuizResult{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Level:       domain.QuizLevel(m.QuizLevel),
		Score:       m.Score,
		Total:       m.Total,
		SubmittedAt: m.SubmittedAt.UTC(),
	}
}

func fromDomainQuizResult(r *domain.QuizResult) *models.QuizResult {
	if r == nil {
		return nil
	}
	return &models.QuizResult{
		ID:          r.ID,
		SessionID:   r.SessionID,
		QuizLevel:   string(r.Level),
		Score:       r.Score,
		Total:       r.Total,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
}

func (r *sqlxResultRepository) Save(ctx context.Context, result *domain.QuizResult) error {
	m := fromDomainQuizResult(result)
	if m == nil {
		return fmt.Errorf("quiz result cannot be nil")
	}
	if m.SubmittedAt.IsZero() {
		m.SubmittedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO quiz_results (id, session_id, quiz_level, score, total, submitted_at)
	          VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.SessionID, m.QuizLevel, m.Score, m.Total, m.SubmittedAt); err != nil {
		return fmt.Errorf("failed to insert quiz result %s: %w", m.ID, err)
	}
	return nil
}

func (r *sqlxResultRepository) ListRecent(ctx context.Context, limit int) ([]*domain.QuizResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, session_id, quiz_level, score, total, submitted_at
	          FROM quiz_results
	          ORDER BY submitted_at DESC, id DESC `
	if database.IsOracle(r.db) {
		query += `FETCH FIRST ? ROWS ONLY`
	} else {
		query += `LIMIT ?`
	}

	var rows []models.QuizResult
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}

	results := make([]*domain.QuizResult, 0, len(rows))
	for i := range rows {
		results = append(results, toDomainQuizResult(&rows[i]))
	}
	return results, nil
}

// noopResultRepository is used when no database is configured.
type noopResultRepository struct{}

// NewNoopResultRepository discards results and always lists none.
func NewNoopResultRepository() domain.ResultRepository {
	return noopResultRepository{}
}

func (noopResultRepository) Save(context.Context, *domain.QuizResult) error { return nil }

func (noopResultRepository) ListRecent(context.Context, int) ([]*domain.QuizResult, error) {
	return []*domain.QuizResult{}, nil
}
