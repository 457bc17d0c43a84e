package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"unicode/utf8"
)

// DisplayNamePattern определяет допустимый формат display name
// Латинские буквы, цифры, '_' и '-', длина 3-20 символов
var DisplayNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

const (
	// MinDisplayNameLen минимальная длина display name
	MinDisplayNameLen = 3
	// MaxDisplayNameLen максимальная длина display name
	MaxDisplayNameLen = 20
	// MinPasswordLen минимальная длина пароля при регистрации
	MinPasswordLen = 8
)

// Error is a ValidationFailure: input rejected before any state mutation.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return fail("email", "email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fail("email", "invalid email address")
	}
	return nil
}

// ValidateDisplayName проверяет, что display name соответствует требованиям
func ValidateDisplayName(name string) error {
	if name == "" {
		return fail("displayName", "display name cannot be empty")
	}

	n := utf8.RuneCountInString(name)
	if n < MinDisplayNameLen {
		return fail("displayName", "display name must be at least %d characters long", MinDisplayNameLen)
	}
	if n > MaxDisplayNameLen {
		return fail("displayName", "display name must not exceed %d characters", MaxDisplayNameLen)
	}

	if !DisplayNamePattern.MatchString(name) {
		return fail("displayName", "display name can only contain letters, numbers, '_' and '-'")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю при регистрации
func ValidatePassword(password string) error {
	if password == "" {
		return fail("password", "password cannot be empty")
	}
	if len(password) < MinPasswordLen {
		return fail("password", "password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}

// ValidatePasswordConfirmation проверяет совпадение пароля и подтверждения
func ValidatePasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return fail("confirmPassword", "Passwords do not match")
	}
	return nil
}

// ValidateLogin проверяет только наличие обоих полей:
// правила сложности пароля применяются при регистрации, а не при входе
func ValidateLogin(email, password string) error {
	if email == "" {
		return fail("email", "email cannot be empty")
	}
	if password == "" {
		return fail("password", "password cannot be empty")
	}
	return nil
}
