package devserver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/pongdash/internal/devserver/storage"
)

// Демо-аккаунт, который создает Seed
const (
	DemoEmail    = "demo@pongdash.dev"
	DemoPassword = "pongdash123"
	DemoName     = "demo"
)

type seedUser struct {
	email string
	name  string
}

// Seed заполняет хранилище демо-данными: аккаунт DemoEmail с историей
// матчей, подтвержденный друг и входящий запрос в друзья
func (s *Server) Seed(ctx context.Context) error {
	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	now := time.Now()
	ids := make(map[string]string)

	// 1. Пользователи
	for _, u := range []seedUser{
		{email: DemoEmail, name: DemoName},
		{email: "rival@pongdash.dev", name: "rival"},
		{email: "newbie@pongdash.dev", name: "newbie"},
	} {
		user := &storage.User{
			ID:           uuid.NewString(),
			Email:        u.email,
			DisplayName:  u.name,
			PasswordHash: hash,
			CreatedAt:    now.Add(-30 * 24 * time.Hour),
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.email, err)
		}
		ids[u.name] = user.ID
	}

	// 2. Друзья: rival подтвержден, newbie ждет ответа
	if err := s.store.RequestFriend(ctx, ids["rival"], ids[DemoName]); err != nil {
		return fmt.Errorf("failed to seed friends: %w", err)
	}
	if err := s.store.AcceptFriend(ctx, ids[DemoName], ids["rival"]); err != nil {
		return fmt.Errorf("failed to seed friends: %w", err)
	}
	if err := s.store.RequestFriend(ctx, ids["newbie"], ids[DemoName]); err != nil {
		return fmt.Errorf("failed to seed friends: %w", err)
	}

	// 3. История матчей
	scores := [][2]int{{11, 7}, {9, 11}, {11, 4}, {11, 9}}
	for i, score := range scores {
		err := s.store.AddMatch(ctx, &storage.Match{
			ID:           uuid.NewString(),
			UserID:       ids[DemoName],
			Opponent:     "rival",
			ScoreFor:     score[0],
			ScoreAgainst: score[1],
			PlayedAt:     now.Add(-time.Duration(len(scores)-i) * 24 * time.Hour),
		})
		if err != nil {
			return fmt.Errorf("failed to seed matches: %w", err)
		}
	}

	s.logger.Info("demo data seeded")
	return nil
}
