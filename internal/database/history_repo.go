package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecentSearch is one distinct query from the search history.
type RecentSearch struct {
	Query          string
	Searches       int
	LastSearchedAt time.Time
}

type HistoryRepository struct {
	db  *DB
	now func() time.Time
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// RecordSearch stores one resolved first-page search.
func (r *HistoryRepository) RecordSearch(ctx context.Context, query string, totalResults int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO search_history (id, query, total_results, searched_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), query, totalResults, r.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent returns up to limit distinct queries, most recently searched first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]RecentSearch, error) {
	if limit <= 0 {
		return []RecentSearch{}, nil
	}

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT query, COUNT(*) AS searches, MAX(searched_at) AS last_searched
		FROM search_history
		GROUP BY query
		ORDER BY last_searched DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent searches: %w", err)
	}
	defer rows.Close()

	searches := []RecentSearch{}
	for rows.Next() {
		var s RecentSearch
		var lastMillis int64
		if err := rows.Scan(&s.Query, &s.Searches, &lastMillis); err != nil {
			return nil, fmt.Errorf("failed to scan recent search: %w", err)
		}
		s.LastSearchedAt = time.UnixMilli(lastMillis)
		searches = append(searches, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return searches, nil
}

// Clear removes the whole history.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}
