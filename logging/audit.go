package logging

import "context"

// Audit actions. Every state change of the social graph or of an account leaves one entry.
const (
	ActionSignUp        = "account.signup"
	ActionSignIn        = "account.signin"
	ActionSignInFailed  = "account.signin_failed"
	ActionSignOut       = "account.signout"
	ActionUpdateProfile = "account.update_profile"
	ActionDeactivate    = "account.deactivate"
	ActionFollow        = "graph.follow"
	ActionUnfollow      = "graph.unfollow"
	ActionFriendRequest = "graph.friend_request"
	ActionFriendAccept  = "graph.friend_accept"
	ActionFriendReject  = "graph.friend_reject"
	ActionUnfriend      = "graph.unfriend"
	ActionPostCreate    = "post.create"
	ActionPostDelete    = "post.delete"
	ActionPostShare     = "post.share"
)

// Audit writes an audit entry with the logger found in ctx.
// targetID may be empty when the action has no second party.
func Audit(ctx context.Context, action, userID, targetID, msg string) {
	l := Ctx(ctx)
	evt := l.Info().
		Str(FieldLogType, logTypeAudit).
		Str(FieldAction, action).
		Str(FieldUserID, userID)
	if targetID != "" {
		evt = evt.Str(FieldTargetID, targetID)
	}
	evt.Msg(msg)
}
