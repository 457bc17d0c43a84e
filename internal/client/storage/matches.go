package storage

import (
	"context"

	"github.com/iudanet/pongdash/pkg/api"
)

//go:generate moq -out matchcache_mock.go . MatchCache

// MatchCache keeps the last known match history per user for offline views
type MatchCache interface {
	// SaveMatches replaces the cached history of userID
	SaveMatches(ctx context.Context, userID string, matches []api.Match) error

	// ListMatches returns cached history, newest first.
	// Returns an empty slice when nothing is cached.
	ListMatches(ctx context.Context, userID string) ([]api.Match, error)
}
