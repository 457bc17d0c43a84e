package api

// FriendRequest адресует операцию над другом по его ID
type FriendRequest struct {
	UserID string `json:"userId"`
}

// Friend запись списка друзей
type Friend struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Status      string `json:"status"` // "accepted" | "pending" | "requested"
	IsOnline    bool   `json:"isOnline"`
}

// FriendStatus онлайн-статус друга
type FriendStatus struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// FriendActionResponse ответ на add/remove/accept/reject
type FriendActionResponse struct {
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}
