package domain

import (
	"context"
	"strings"
	"time"

	"mySocialApp/errs"
)

// Follow is a directed edge of the social graph: FollowerID follows FollowedID.
// One row provides both the follower's "following" and the followed user's "followers"
// view, so the two can never disagree.
type Follow struct {
	ID         int       `json:"-"`
	FollowerID int       `json:"-" gorm:"notNull;uniqueIndex:idx_follow_pair"`
	FollowedID int       `json:"-" gorm:"notNull;uniqueIndex:idx_follow_pair;index"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Friendship is an undirected edge. It's stored once per pair with UserID < FriendID,
// which makes friendship symmetric and deduplicated by construction.
type Friendship struct {
	ID        int       `json:"-"`
	UserID    int       `json:"-" gorm:"notNull;uniqueIndex:idx_friendship_pair"`
	FriendID  int       `json:"-" gorm:"notNull;uniqueIndex:idx_friendship_pair;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewFriendship returns the canonical edge for the pair a, b.
func NewFriendship(a, b int) Friendship {
	if a > b {
		a, b = b, a
	}
	return Friendship{UserID: a, FriendID: b}
}

// FriendRequest is a pending, directional proposal to become friends.
type FriendRequest struct {
	ID          int       `json:"-"`
	RequesterID int       `json:"-" gorm:"notNull;uniqueIndex:idx_friend_request_pair"`
	RecipientID int       `json:"-" gorm:"notNull;uniqueIndex:idx_friend_request_pair;index"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RequestAction is the answer to a pending friend request.
type RequestAction string

const (
	RequestAccept RequestAction = "accept"
	RequestReject RequestAction = "reject"
)

// ParseRequestAction parses the action path segment of a friend request resolution.
func ParseRequestAction(s string) (RequestAction, error) {
	switch a := RequestAction(strings.ToLower(strings.TrimSpace(s))); a {
	case RequestAccept, RequestReject:
		return a, nil
	}
	return "", errs.Errorf(errs.EINVALID, "Invalid action. Use 'accept' or 'reject'.")
}

// RelationshipService manages the social graph. Actors and targets are addressed
// by public id. Every mutation touching two accounts is applied atomically.
type RelationshipService interface {
	ToggleFollow(ctx context.Context, actor, target string) (following bool, err error)
	SendFriendRequest(ctx context.Context, actor, target string) error
	ResolveFriendRequest(ctx context.Context, actor, requester string, action RequestAction) error
	Unfriend(ctx context.Context, actor, target string) error

	AreFriends(ctx context.Context, a, b int) (bool, error)
	Friends(ctx context.Context, userID int) ([]UserSummary, error)
	Followers(ctx context.Context, userID int) ([]UserSummary, error)
	Following(ctx context.Context, userID int) ([]UserSummary, error)
	FriendRequests(ctx context.Context, userID int) ([]UserSummary, error)
}
