package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/iudanet/pongdash/internal/client/router"
	"github.com/iudanet/pongdash/internal/client/views"
)

const (
	msgLoginFailed        = "Login failed. Please try again."
	msgRegistrationFailed = "Registration failed. Please try again."
)

func (c *Cli) runLogin(ctx context.Context, email string) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	var err error
	if email == "" {
		email, err = c.io.ReadInput("Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	// Сервис сам переходит на запомненный путь или в кабинет
	session, err := c.app.Session.LoginWithCredentials(ctx, email, password)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, msgLoginFailed))
		return err
	}

	c.io.Printf("✓ Logged in as %s\n", session.NameOrDefault())
	return nil
}

func (c *Cli) runMockLogin(ctx context.Context) error {
	path, err := c.app.Session.MockLogin(ctx)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, err.Error()))
		return err
	}

	c.io.Println("✓ Mock session created")
	// Со стартовой страницы в кабинет уже перевела подписка на сессию
	if c.app.Router.Current() == path {
		return nil
	}
	return c.app.Router.Replace(ctx, path)
}

// runLoginExternal запоминает путь возврата, проводит пользователя
// через провайдера и передает полученный code экрану /auth/callback
func (c *Cli) runLoginExternal(ctx context.Context, returnPath string) error {
	if returnPath == "" {
		returnPath = router.ParseLocation(c.app.Router.History().Location()).Path
	}

	if err := c.app.Session.BeginExternalLogin(ctx, returnPath); err != nil {
		return err
	}

	code, err := c.app.OAuth.Run(ctx, func(authURL string) error {
		c.io.Println("Open this URL in your browser to sign in:")
		c.io.Printf("  %s\n\n", authURL)
		c.io.Println("Waiting for the provider to redirect back...")
		return nil
	})
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, msgLoginFailed))
		return err
	}

	callback := views.CallbackPath + "?" + url.Values{"code": {code}}.Encode()
	if err := c.app.Router.Navigate(ctx, callback, router.NavigateOptions{}); err != nil {
		return err
	}

	if !c.app.Session.IsAuthenticated() {
		c.io.Printf("✗ %s\n", msgLoginFailed)
		return fmt.Errorf("external login failed")
	}

	c.io.Printf("✓ Logged in as %s\n", c.app.Session.CurrentUser().NameOrDefault())
	return nil
}

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Create Account ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	displayName, err := c.io.ReadInput("Display name: ")
	if err != nil {
		return fmt.Errorf("failed to read display name: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	session, err := c.app.Session.RegisterWithCredentials(ctx, email, password, confirm, displayName)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, msgRegistrationFailed))
		return err
	}

	c.io.Printf("✓ Account created. Logged in as %s\n", session.NameOrDefault())
	return nil
}
