package api

// Пути API относительно base URL (по умолчанию http://localhost:3000/api)
const (
	PathLoginExternal = "/auth/42/callback"
	PathLoginEmail    = "/auth/login"
	PathRegisterEmail = "/auth/register"
	PathLogout        = "/auth/logout"
	PathRefreshToken  = "/auth/refresh"
	PathVerify2FA     = "/auth/2fa/verify"
	PathAuthorize42   = "/auth/42/login" // страница входа провайдера (dev server)

	PathProfile          = "/users/profile"
	PathUpdateProfile    = "/users/profile/update"
	PathUploadAvatar     = "/users/profile/avatar"
	PathCheckDisplayName = "/users/check-display-name"
	PathMatchHistory     = "/users/matches"
	PathStats            = "/users/stats"

	PathFriends       = "/friends"
	PathFriendsAdd    = "/friends/add"
	PathFriendsRemove = "/friends/remove"
	PathFriendsAccept = "/friends/accept"
	PathFriendsReject = "/friends/reject"
	PathFriendsStatus = "/friends/status"

	PathHealth = "/health"
)

// Коды ошибок, которые сервер возвращает в поле code
const (
	CodeBadCredentials = "AUTH_BAD_CREDENTIALS"
	CodeTokenInvalid   = "AUTH_TOKEN_INVALID"
	CodeEmailTaken     = "AUTH_EMAIL_TAKEN"
	CodeNameTaken      = "USER_NAME_TAKEN"
	CodeBadRequest     = "BAD_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
	CodeConflict       = "CONFLICT"
)
