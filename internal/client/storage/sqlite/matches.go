package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/pongdash/pkg/api"
)

// SaveMatches replaces the cached history of userID in one transaction
func (s *Storage) SaveMatches(ctx context.Context, userID string, matches []api.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Удаляем старую историю пользователя
	if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}

	// 2. Вставляем актуальную
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO matches
			(user_id, match_id, opponent, result, score_for, score_against, played_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixNano()
	for _, m := range matches {
		_, err := stmt.ExecContext(ctx,
			userID,
			m.ID,
			m.Opponent,
			m.Result,
			m.ScoreFor,
			m.ScoreAgainst,
			m.PlayedAt.UnixNano(),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save match %s: %w", m.ID, err)
		}
	}

	// 3. Коммитим
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit matches: %w", err)
	}

	return nil
}

// ListMatches returns the cached history of userID, newest first
func (s *Storage) ListMatches(ctx context.Context, userID string) ([]api.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, opponent, result, score_for, score_against, played_at
		FROM matches
		WHERE user_id = ?
		ORDER BY played_at DESC, match_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]api.Match, 0)
	for rows.Next() {
		var (
			m        api.Match
			playedAt int64
		)
		if err := rows.Scan(&m.ID, &m.Opponent, &m.Result, &m.ScoreFor, &m.ScoreAgainst, &playedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.PlayedAt = time.Unix(0, playedAt).UTC()
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}
