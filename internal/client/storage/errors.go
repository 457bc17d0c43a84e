package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no credentials are stored
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrRedirectNotFound indicates that no post-login redirect is remembered
	ErrRedirectNotFound = errors.New("redirect path not found")

	// ErrSaltNotFound indicates that the keyring salt was never generated
	ErrSaltNotFound = errors.New("keyring salt not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
