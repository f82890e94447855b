package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Case is one uploaded document and its extracted text.
type Case struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	StoredPath   string    `json:"stored_path"`
	TextContent  string    `json:"text_content,omitempty"`
	CustomerName string    `json:"customer_name"`
	SystemName   string    `json:"system_name"`
	ContentHash  string    `json:"content_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateCase inserts a case and returns its ID.
func (s *Store) CreateCase(ctx context.Context, c Case) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (filename, stored_path, text_content, customer_name, system_name, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Filename, c.StoredPath, c.TextContent, nullIfEmpty(c.CustomerName), nullIfEmpty(c.SystemName), nullIfEmpty(c.ContentHash))
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	return res.LastInsertId()
}

// GetCase returns the case with the given ID, including its text.
func (s *Store) GetCase(ctx context.Context, id int64) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, stored_path, text_content, customer_name, system_name, content_hash,
		       strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM cases WHERE id = ?
	`, id)
	c, err := scanCase(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %d: %w", id, err)
	}
	return c, nil
}

// SearchCases returns cases whose filename or text contains keyword,
// newest first. An empty keyword lists every case. Text is not loaded.
func (s *Store) SearchCases(ctx context.Context, keyword string) ([]Case, error) {
	query := `
		SELECT id, filename, stored_path, customer_name, system_name, content_hash,
		       strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM cases`
	var args []any
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		like := "%" + escapeLike(keyword) + "%"
		query += ` WHERE filename LIKE ? ESCAPE '\' OR text_content LIKE ? ESCAPE '\'`
		args = append(args, like, like)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CountCases returns the total number of cases.
func (s *Store) CountCases(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// FindCaseByHash returns the oldest case with the given content hash.
func (s *Store) FindCaseByHash(ctx context.Context, hash string) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, stored_path, customer_name, system_name, content_hash,
		       strftime('%Y-%m-%d %H:%M:%S', created_at)
		FROM cases WHERE content_hash = ? ORDER BY id LIMIT 1
	`, hash)
	c, err := scanCase(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case by hash: %w", err)
	}
	return c, nil
}

// UpdateMetadata sets the customer and system names of a case.
func (s *Store) UpdateMetadata(ctx context.Context, id int64, customer, system string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cases SET customer_name = ?, system_name = ? WHERE id = ?",
		customer, system, id)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return requireRow(res)
}

// DeleteCase removes a case and all of its summaries.
func (s *Store) DeleteCase(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM summaries WHERE case_id = ?", id); err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete case: %w", err)
		}
		return requireRow(res)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner, withText bool) (*Case, error) {
	var (
		c                      Case
		customer, system, hash sql.NullString
		created                sql.NullString
	)
	dest := []any{&c.ID, &c.Filename, &c.StoredPath}
	if withText {
		dest = append(dest, &c.TextContent)
	}
	dest = append(dest, &customer, &system, &hash, &created)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	c.CustomerName = customer.String
	c.SystemName = system.String
	c.ContentHash = hash.String
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
