package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-interview-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CandidateArchive persists completed candidate records as JSONB so the
// review dashboard keeps them across restarts.
type CandidateArchive struct {
	pool *pgxpool.Pool
}

func NewCandidateArchive(pool *pgxpool.Pool) *CandidateArchive {
	return &CandidateArchive{pool: pool}
}

func (a *CandidateArchive) ArchiveCandidate(ctx context.Context, c domain.Candidate) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO candidates (id, data, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, completed_at = EXCLUDED.completed_at`,
		c.ID, raw, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("archive candidate: %w", err)
	}
	return nil
}

func (a *CandidateArchive) LoadCompleted(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := a.pool.Query(ctx, `SELECT data FROM candidates ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		var candidate domain.Candidate
		if err := json.Unmarshal(raw, &candidate); err != nil {
			return nil, fmt.Errorf("unmarshal candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}
