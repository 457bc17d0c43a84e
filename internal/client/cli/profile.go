package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iudanet/pongdash/pkg/api"
)

// ErrNameTaken выбранный display name уже занят
var ErrNameTaken = errors.New("display name is already taken")

func (c *Cli) runProfile(ctx context.Context) error {
	return c.render(profileTemplate, c.app.Session.CurrentUser())
}

func (c *Cli) runProfileName(ctx context.Context, args []string) error {
	name, err := c.argOrPrompt(args, "New display name: ")
	if err != nil {
		return err
	}

	// 1. Проверяем уникальность
	available, err := c.app.Session.CheckNameAvailability(ctx, name)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Could not check display name."))
		return err
	}
	if !available {
		c.io.Printf("✗ %s\n", ErrNameTaken)
		return ErrNameTaken
	}

	// 2. Обновляем профиль
	session, err := c.app.Session.UpdateProfile(ctx, api.ProfileUpdate{DisplayName: &name})
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Profile update failed."))
		return err
	}

	c.io.Printf("✓ Display name changed to %s\n", session.NameOrDefault())
	return nil
}

func (c *Cli) runProfileAvatar(ctx context.Context, args []string) error {
	path, err := c.argOrPrompt(args, "Avatar file: ")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read avatar file: %w", err)
	}

	avatarURL, err := c.app.Session.UpdateAvatar(ctx, filepath.Base(path), data)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Avatar upload failed."))
		return err
	}

	c.io.Printf("✓ Avatar updated: %s\n", avatarURL)
	return nil
}

func (c *Cli) runVerify(ctx context.Context, args []string) error {
	code, err := c.argOrPrompt(args, "Verification code: ")
	if err != nil {
		return err
	}

	verified, err := c.app.Session.VerifySecondFactor(ctx, code)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Verification failed."))
		return err
	}
	if !verified {
		c.io.Println("✗ Code rejected")
		return errors.New("verification code rejected")
	}

	c.io.Println("✓ Second factor verified")
	return nil
}

// argOrPrompt возвращает первый аргумент или спрашивает значение
func (c *Cli) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	v, err := c.io.ReadInput(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return v, nil
}
