package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates that user with this email already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrNameTaken indicates that display name belongs to another user
	ErrNameTaken = errors.New("display name already taken")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrCodeNotFound indicates that authorization code is unknown or already used
	ErrCodeNotFound = errors.New("authorization code not found")

	// ErrFriendNotFound indicates that there is no friendship between users
	ErrFriendNotFound = errors.New("friendship not found")

	// ErrFriendExists indicates that friendship or request already exists
	ErrFriendExists = errors.New("friendship already exists")

	// ErrNoPendingRequest indicates that there is no incoming request to accept or reject
	ErrNoPendingRequest = errors.New("no pending friend request")

	// ErrAvatarNotFound indicates that avatar image was not found
	ErrAvatarNotFound = errors.New("avatar not found")

	// ErrSelfFriend indicates an attempt to befriend yourself
	ErrSelfFriend = errors.New("cannot add yourself as a friend")
)
