package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/pongdash/pkg/api"
)

const (
	friendsList   = "list"
	friendsAdd    = "add"
	friendsRemove = "remove"
	friendsAccept = "accept"
	friendsReject = "reject"
)

var friendActionHelp = map[string]string{
	friendsList:   "List friends with their online status",
	friendsAdd:    "Send a friend request",
	friendsRemove: "Remove a friend",
	friendsAccept: "Accept a friend request",
	friendsReject: "Reject a friend request",
}

// runFriends выполняет "list" (по умолчанию) или действие над другом
func (c *Cli) runFriends(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == friendsList {
		return c.listFriends(ctx)
	}

	action := args[0]
	if len(args) < 2 || args[1] == "" {
		return fmt.Errorf("missing user id. Usage: friends %s <user-id>", action)
	}
	userID := args[1]

	var call func(context.Context, string) (*api.FriendActionResponse, error)
	switch action {
	case friendsAdd:
		call = c.app.Session.AddFriend
	case friendsRemove:
		call = c.app.Session.RemoveFriend
	case friendsAccept:
		call = c.app.Session.AcceptFriend
	case friendsReject:
		call = c.app.Session.RejectFriend
	default:
		return fmt.Errorf("unknown friends action: %s. Use: list, add, remove, accept or reject", action)
	}

	resp, err := call(ctx, userID)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Friend request failed."))
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s: done", action, userID)
	}
	c.io.Printf("✓ %s\n", msg)
	return nil
}

// listFriends объединяет список друзей с их онлайн-статусом
func (c *Cli) listFriends(ctx context.Context) error {
	friends, err := c.app.Session.Friends(ctx)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Could not load friends."))
		return err
	}

	statuses, err := c.app.Session.FriendsStatus(ctx)
	if err != nil {
		// Список без статусов лучше, чем ничего
		c.app.Logger.Warn("failed to load friends status", slog.Any("error", err))
	}
	online := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		online[st.UserID] = st.IsOnline
	}
	for i := range friends {
		if v, ok := online[friends[i].ID]; ok {
			friends[i].IsOnline = v
		}
	}

	return c.render(friendsTemplate, friends)
}

func (c *Cli) runMatches(ctx context.Context) error {
	matches, err := c.app.Session.MatchHistory(ctx)
	if err != nil {
		c.io.Printf("✗ %s\n", failureMessage(err, "Could not load match history."))
		return err
	}
	return c.render(matchesTemplate, matches)
}
