package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Summary is one problem / solution / outcome record for a case. A case
// may have many; the newest is current.
type Summary struct {
	ID        int64     `json:"id"`
	CaseID    int64     `json:"case_id"`
	Problem   string    `json:"problem"`
	Solution  string    `json:"solution"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertSummary appends a summary for a case and returns its ID.
func (s *Store) InsertSummary(ctx context.Context, sum Summary) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO summaries (case_id, problem, solution, outcome) VALUES (?, ?, ?, ?)",
		sum.CaseID, sum.Problem, sum.Solution, sum.Outcome)
	if err != nil {
		return 0, fmt.Errorf("insert summary: %w", err)
	}
	return res.LastInsertId()
}

// LatestSummary returns the most recently inserted summary for a case.
func (s *Store) LatestSummary(ctx context.Context, caseID int64) (*Summary, error) {
	var (
		sum                        Summary
		problem, solution, outcome sql.NullString
		created                    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, problem, solution, outcome, strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM summaries WHERE case_id = ? ORDER BY id DESC LIMIT 1
	`, caseID).Scan(&sum.ID, &sum.CaseID, &problem, &solution, &outcome, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest summary: %w", err)
	}
	sum.Problem = problem.String
	sum.Solution = solution.String
	sum.Outcome = outcome.String
	sum.CreatedAt = parseTime(created)
	return &sum, nil
}
