package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"mockprep-service/internal/domain"
)

// ResultArchive keeps completed test results in Postgres, one row per
// submission with the full result as JSONB.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) SaveResult(ctx context.Context, email string, cfg domain.TestConfig, result domain.TestResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO test_results (id, email, subject, test_type, score, correct_answers, incorrect_answers, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), email, cfg.Subject, cfg.TestType,
		result.Score, result.CorrectAnswers, result.IncorrectAnswers, payload,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (a *ResultArchive) ListResults(ctx context.Context, email string) ([]domain.ArchivedResult, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, email, subject, test_type, payload, created_at
		 FROM test_results WHERE email=$1 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.ArchivedResult
	for rows.Next() {
		var entry domain.ArchivedResult
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Email, &entry.Subject, &entry.TestType, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}
