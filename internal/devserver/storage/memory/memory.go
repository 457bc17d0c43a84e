// Package memory реализует storage.Storage в памяти процесса.
// Данные живут до остановки dev server.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/pongdash/internal/devserver/storage"
)

// Storage потокобезопасное in-memory хранилище
type Storage struct {
	users   map[string]*storage.User
	tokens  map[string]*storage.RefreshToken
	codes   map[string]*storage.AuthCode
	friends map[string]map[string]string // userID -> friendID -> status
	matches map[string][]*storage.Match
	avatars map[string]*storage.Avatar
	mu      sync.RWMutex
}

var _ storage.Storage = (*Storage)(nil)

// New создает пустое хранилище
func New() *Storage {
	return &Storage{
		users:   make(map[string]*storage.User),
		tokens:  make(map[string]*storage.RefreshToken),
		codes:   make(map[string]*storage.AuthCode),
		friends: make(map[string]map[string]string),
		matches: make(map[string][]*storage.Match),
		avatars: make(map[string]*storage.Avatar),
	}
}

// CreateUser сохраняет нового пользователя
func (s *Storage) CreateUser(ctx context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(user); err != nil {
		return err
	}

	u := *user
	s.users[u.ID] = &u
	return nil
}

// GetUserByEmail ищет пользователя по email без учета регистра
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// GetUserByID ищет пользователя по ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// UpdateUser заменяет запись пользователя
func (s *Storage) UpdateUser(ctx context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrUserNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}

	u := *user
	s.users[u.ID] = &u
	return nil
}

// NameTaken проверяет, занято ли имя кем-то кроме exceptID
func (s *Storage) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.DisplayName, name) {
			return true, nil
		}
	}
	return false, nil
}

// Touch обновляет время последней активности
func (s *Storage) Touch(ctx context.Context, userID string, seen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.LastSeen = seen
	return nil
}

// checkUnique вызывается под s.mu
func (s *Storage) checkUnique(user *storage.User) error {
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Email, user.Email) {
			return storage.ErrEmailTaken
		}
		if user.DisplayName != "" && strings.EqualFold(u.DisplayName, user.DisplayName) {
			return storage.ErrNameTaken
		}
	}
	return nil
}

// SaveRefreshToken сохраняет refresh token
func (s *Storage) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.tokens[t.Token] = &t
	return nil
}

// GetRefreshToken возвращает refresh token по значению
func (s *Storage) GetRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	c := *t
	return &c, nil
}

// DeleteUserTokens удаляет все refresh токены пользователя
func (s *Storage) DeleteUserTokens(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

// SaveAuthCode сохраняет одноразовый код
func (s *Storage) SaveAuthCode(ctx context.Context, code *storage.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *code
	s.codes[c.Code] = &c
	return nil
}

// ConsumeAuthCode возвращает код и удаляет его; просроченный код не возвращается
func (s *Storage) ConsumeAuthCode(ctx context.Context, code string, now time.Time) (*storage.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrCodeNotFound
	}
	delete(s.codes, code)

	if !now.Before(c.ExpiresAt) {
		return nil, storage.ErrCodeNotFound
	}
	return c, nil
}

// Friends возвращает список друзей пользователя, упорядоченный по ID
func (s *Storage) Friends(ctx context.Context, userID string) ([]storage.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]storage.Friendship, 0, len(s.friends[userID]))
	for id, status := range s.friends[userID] {
		list = append(list, storage.Friendship{UserID: id, Status: status})
	}
	slices.SortFunc(list, func(a, b storage.Friendship) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return list, nil
}

// RequestFriend создает исходящий запрос. Встречный запрос принимается сразу.
func (s *Storage) RequestFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == friendID {
		return storage.ErrSelfFriend
	}
	if _, ok := s.users[friendID]; !ok {
		return storage.ErrUserNotFound
	}

	switch s.friends[userID][friendID] {
	case "":
		s.setFriend(userID, friendID, storage.FriendPending)
		s.setFriend(friendID, userID, storage.FriendRequested)
	case storage.FriendRequested:
		s.setFriend(userID, friendID, storage.FriendAccepted)
		s.setFriend(friendID, userID, storage.FriendAccepted)
	default:
		return storage.ErrFriendExists
	}
	return nil
}

// AcceptFriend принимает входящий запрос
func (s *Storage) AcceptFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.friends[userID][friendID] != storage.FriendRequested {
		return storage.ErrNoPendingRequest
	}
	s.setFriend(userID, friendID, storage.FriendAccepted)
	s.setFriend(friendID, userID, storage.FriendAccepted)
	return nil
}

// RejectFriend отклоняет входящий запрос
func (s *Storage) RejectFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.friends[userID][friendID] != storage.FriendRequested {
		return storage.ErrNoPendingRequest
	}
	s.unsetFriend(userID, friendID)
	return nil
}

// RemoveFriend удаляет дружбу или запрос в обе стороны
func (s *Storage) RemoveFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friends[userID][friendID]; !ok {
		return storage.ErrFriendNotFound
	}
	s.unsetFriend(userID, friendID)
	return nil
}

func (s *Storage) setFriend(userID, friendID, status string) {
	if s.friends[userID] == nil {
		s.friends[userID] = make(map[string]string)
	}
	s.friends[userID][friendID] = status
}

func (s *Storage) unsetFriend(userID, friendID string) {
	delete(s.friends[userID], friendID)
	delete(s.friends[friendID], userID)
}

// AddMatch сохраняет матч
func (s *Storage) AddMatch(ctx context.Context, match *storage.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[match.UserID]; !ok {
		return storage.ErrUserNotFound
	}

	m := *match
	s.matches[m.UserID] = append(s.matches[m.UserID], &m)
	return nil
}

// Matches возвращает матчи пользователя, новые первыми
func (s *Storage) Matches(ctx context.Context, userID string) ([]*storage.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*storage.Match, 0, len(s.matches[userID]))
	for _, m := range s.matches[userID] {
		c := *m
		list = append(list, &c)
	}
	slices.SortStableFunc(list, func(a, b *storage.Match) int {
		return b.PlayedAt.Compare(a.PlayedAt)
	})
	return list, nil
}

// SaveAvatar сохраняет изображение под именем name
func (s *Storage) SaveAvatar(ctx context.Context, name string, avatar *storage.Avatar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.avatars[name] = &storage.Avatar{
		ContentType: avatar.ContentType,
		Data:        slices.Clone(avatar.Data),
	}
	return nil
}

// GetAvatar возвращает изображение по имени
func (s *Storage) GetAvatar(ctx context.Context, name string) (*storage.Avatar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.avatars[name]
	if !ok {
		return nil, storage.ErrAvatarNotFound
	}
	return a, nil
}
