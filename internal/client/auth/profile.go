package auth

import (
	"context"
	"log/slog"

	"github.com/iudanet/pongdash/internal/models"
	"github.com/iudanet/pongdash/internal/validation"
	"github.com/iudanet/pongdash/pkg/api"
)

// VerifySecondFactor проверяет код второго фактора. При успехе профиль
// перечитывается и подписчики уведомляются; при неуспехе Session не меняется.
func (s *Service) VerifySecondFactor(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, &validation.Error{Field: "code", Message: "verification code cannot be empty"}
	}

	gen := s.currentGeneration()

	resp, err := s.client.Verify2FA(ctx, code)
	if err != nil {
		s.logger.Warn("2fa verification failed", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return false, err
	}
	if !resp.Verified {
		return false, nil
	}

	profile, err := s.client.GetProfile(ctx)
	if err != nil {
		s.expireIfUnauthorized(ctx, err)
		return false, err
	}

	session := models.SessionFromProfile(profile)
	applied := s.commit(func() bool {
		if s.generation != gen {
			return false
		}
		s.session = session
		return true
	})
	if !applied {
		return false, ErrSessionChanged
	}

	return true, nil
}

// UpdateProfile отправляет частичное обновление и целиком заменяет Session
// ответом сервера. При ошибке Session не меняется.
func (s *Service) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*models.Session, error) {
	if update.DisplayName != nil {
		if err := validation.ValidateDisplayName(*update.DisplayName); err != nil {
			return nil, err
		}
	}
	if update.Email != nil {
		if err := validation.ValidateEmail(*update.Email); err != nil {
			return nil, err
		}
	}

	gen, ok := s.authenticatedGeneration()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	profile, err := s.client.UpdateProfile(ctx, update)
	if err != nil {
		s.logger.Warn("profile update failed", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return nil, err
	}

	session := models.SessionFromProfile(profile)
	if !s.replaceSession(gen, session) {
		s.logger.Debug("profile update discarded, session changed meanwhile")
		return nil, ErrSessionChanged
	}

	return session.Clone(), nil
}

// UpdateAvatar загружает аватар и меняет только поле Avatar текущей Session
func (s *Service) UpdateAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &validation.Error{Field: "avatar", Message: "avatar file is empty"}
	}

	gen, ok := s.authenticatedGeneration()
	if !ok {
		return "", ErrNotAuthenticated
	}

	resp, err := s.client.UploadAvatar(ctx, filename, data)
	if err != nil {
		s.logger.Warn("avatar upload failed", slog.Any("error", err))
		s.expireIfUnauthorized(ctx, err)
		return "", err
	}
	if resp.AvatarURL == "" {
		return "", nil
	}

	applied := s.commit(func() bool {
		if s.generation != gen || s.session == nil {
			return false
		}
		updated := s.session.Clone()
		updated.Avatar = resp.AvatarURL
		s.session = updated
		return true
	})
	if !applied {
		return "", ErrSessionChanged
	}

	return resp.AvatarURL, nil
}

// CheckNameAvailability проверяет, свободен ли display name. Состояние не меняет.
func (s *Service) CheckNameAvailability(ctx context.Context, name string) (bool, error) {
	if err := validation.ValidateDisplayName(name); err != nil {
		return false, err
	}

	resp, err := s.client.CheckDisplayName(ctx, name)
	if err != nil {
		s.logger.Warn("display name check failed", slog.Any("error", err))
		return false, err
	}

	return resp.Available, nil
}

// replaceSession заменяет Session, если поколение не изменилось
// и пользователь все еще аутентифицирован
func (s *Service) replaceSession(gen uint64, session *models.Session) bool {
	return s.commit(func() bool {
		if s.generation != gen || s.session == nil {
			return false
		}
		s.session = session.Clone()
		return true
	})
}

func (s *Service) authenticatedGeneration() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation, s.session != nil
}
