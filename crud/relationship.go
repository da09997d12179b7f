package crud

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/lock"
)

// RelationshipService manages the social graph: follows, friend requests and friendships.
// Mutations on a pair of accounts hold the pair's lock and run in a single transaction,
// so both sides of a relation always change together.
// It implements the domain.RelationshipService interface.
type RelationshipService struct {
	relationshipValidator
}

// relationshipValidator runs validations on an actor / target pair.
// On success, it passes the pair on to relationshipGorm.
type relationshipValidator struct {
	relationshipGorm
}

// relationshipGorm runs the graph mutations. It assumes that the pair has been validated.
type relationshipGorm struct {
	db     *gorm.DB
	locker lock.Locker
}

// NewRelationshipService returns an instance of RelationshipService.
func NewRelationshipService(db *gorm.DB, locker lock.Locker) *RelationshipService {
	return &RelationshipService{
		relationshipValidator{
			relationshipGorm{
				db:     db,
				locker: locker,
			},
		},
	}
}

// Ensure the RelationshipService struct properly implements the domain.RelationshipService interface.
var _ domain.RelationshipService = &RelationshipService{}

// pair is the subject of a relationship operation: actor does something to target.
type pair struct {
	actor  *domain.User
	target *domain.User
}

// ToggleFollow makes actor follow target, or unfollow if it already does.
// It returns whether actor follows target afterwards.
func (rv *relationshipValidator) ToggleFollow(ctx context.Context, actor, target string) (bool, error) {
	if actor == target {
		return false, errs.Errorf(errs.EINVALID, "You cannot follow yourself.")
	}
	p, err := rv.resolve(ctx, actor, target)
	if err != nil {
		return false, err
	}
	return rv.relationshipGorm.ToggleFollow(ctx, p)
}

// SendFriendRequest adds actor to target's pending friend requests.
func (rv *relationshipValidator) SendFriendRequest(ctx context.Context, actor, target string) error {
	if actor == target {
		return errs.Errorf(errs.EINVALID, "You cannot send a friend request to yourself.")
	}
	p, err := rv.resolve(ctx, actor, target)
	if err != nil {
		return err
	}
	return rv.relationshipGorm.SendFriendRequest(ctx, p)
}

// ResolveFriendRequest accepts or rejects the pending request requester sent to actor.
func (rv *relationshipValidator) ResolveFriendRequest(ctx context.Context, actor, requester string, action domain.RequestAction) error {
	if action != domain.RequestAccept && action != domain.RequestReject {
		return errs.Errorf(errs.EINVALID, "Invalid action. Use 'accept' or 'reject'.")
	}
	if actor == requester {
		return errs.Errorf(errs.EINVALID, "No friend request found from this user.")
	}
	p, err := rv.resolve(ctx, actor, requester)
	if err != nil {
		return err
	}
	return rv.relationshipGorm.ResolveFriendRequest(ctx, p, action)
}

// Unfriend removes the friendship between actor and target.
func (rv *relationshipValidator) Unfriend(ctx context.Context, actor, target string) error {
	if actor == target {
		return errs.Errorf(errs.EINVALID, "You cannot unfriend yourself.")
	}
	p, err := rv.resolve(ctx, actor, target)
	if err != nil {
		return err
	}
	return rv.relationshipGorm.Unfriend(ctx, p)
}

// resolve looks up both accounts of a pair. Only active accounts take part in the graph.
func (rv *relationshipValidator) resolve(ctx context.Context, actor, target string) (*pair, error) {
	a, err := rv.activeByPublicID(ctx, actor)
	if err != nil {
		return nil, err
	}
	t, err := rv.activeByPublicID(ctx, target)
	if err != nil {
		return nil, err
	}
	return &pair{actor: a, target: t}, nil
}

func (rg *relationshipGorm) activeByPublicID(ctx context.Context, publicID string) (*domain.User, error) {
	var user domain.User
	err := rg.db.WithContext(ctx).
		Where("public_id = ? AND status = ?", publicID, domain.StatusActive).
		First(&user).Error
	if err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

// inPairTx runs fn in a transaction while holding the lock of the pair.
// The transaction is cancelled before the lock could expire.
func (rg *relationshipGorm) inPairTx(ctx context.Context, p *pair, fn func(tx *gorm.DB) error) error {
	unlock, err := rg.locker.Lock(ctx, lock.PairKey(p.actor.ID, p.target.ID))
	if err != nil {
		return fmt.Errorf("lock pair %d/%d: %w", p.actor.ID, p.target.ID, err)
	}
	defer unlock()
	ctx, cancel := lock.Bound(ctx, rg.locker)
	defer cancel()
	return rg.db.WithContext(ctx).Transaction(fn)
}

func (rg *relationshipGorm) ToggleFollow(ctx context.Context, p *pair) (bool, error) {
	var following bool
	err := rg.inPairTx(ctx, p, func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followed_id = ?", p.actor.ID, p.target.ID).Delete(&domain.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}
		following = true
		return tx.Create(&domain.Follow{FollowerID: p.actor.ID, FollowedID: p.target.ID}).Error
	})
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	return following, nil
}

func (rg *relationshipGorm) SendFriendRequest(ctx context.Context, p *pair) error {
	return rg.inPairTx(ctx, p, func(tx *gorm.DB) error {
		friends, err := areFriends(tx, p.actor.ID, p.target.ID)
		if err != nil {
			return err
		}
		if friends {
			return errs.Errorf(errs.ECONFLICT, "You are already friends with this user.")
		}

		var pending int64
		err = tx.Model(&domain.FriendRequest{}).
			Where("requester_id = ? AND recipient_id = ?", p.actor.ID, p.target.ID).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return errs.Errorf(errs.ECONFLICT, "Friend request already sent.")
		}

		err = tx.Create(&domain.FriendRequest{RequesterID: p.actor.ID, RecipientID: p.target.ID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Errorf(errs.ECONFLICT, "Friend request already sent.")
		}
		return err
	})
}

// ResolveFriendRequest consumes the pending request of p.target to p.actor.
// Accepting also drops a crossing request p.actor may have sent the other way.
func (rg *relationshipGorm) ResolveFriendRequest(ctx context.Context, p *pair, action domain.RequestAction) error {
	requester, recipient := p.target, p.actor
	return rg.inPairTx(ctx, p, func(tx *gorm.DB) error {
		res := tx.Where("requester_id = ? AND recipient_id = ?", requester.ID, recipient.ID).Delete(&domain.FriendRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errs.Errorf(errs.EINVALID, "No friend request found from this user.")
		}
		if action == domain.RequestReject {
			return nil
		}

		err := tx.Where("requester_id = ? AND recipient_id = ?", recipient.ID, requester.ID).Delete(&domain.FriendRequest{}).Error
		if err != nil {
			return err
		}
		f := domain.NewFriendship(requester.ID, recipient.ID)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&f).Error
	})
}

func (rg *relationshipGorm) Unfriend(ctx context.Context, p *pair) error {
	return rg.inPairTx(ctx, p, func(tx *gorm.DB) error {
		f := domain.NewFriendship(p.actor.ID, p.target.ID)
		res := tx.Where("user_id = ? AND friend_id = ?", f.UserID, f.FriendID).Delete(&domain.Friendship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Errorf(errs.EINVALID, "You are not friends with this user.")
		}
		return nil
	})
}

// AreFriends reports whether the accounts a and b are friends.
func (rg *relationshipGorm) AreFriends(ctx context.Context, a, b int) (bool, error) {
	return areFriends(rg.db.WithContext(ctx), a, b)
}

// Friends lists the friends of a user.
func (rg *relationshipGorm) Friends(ctx context.Context, userID int) ([]domain.UserSummary, error) {
	return summaries(friendsOf(rg.db.WithContext(ctx), userID))
}

// Followers lists the users following a user.
func (rg *relationshipGorm) Followers(ctx context.Context, userID int) ([]domain.UserSummary, error) {
	return summaries(followersOf(rg.db.WithContext(ctx), userID))
}

// Following lists the users a user follows.
func (rg *relationshipGorm) Following(ctx context.Context, userID int) ([]domain.UserSummary, error) {
	return summaries(followedBy(rg.db.WithContext(ctx), userID))
}

// FriendRequests lists the users with a pending friend request to a user.
func (rg *relationshipGorm) FriendRequests(ctx context.Context, userID int) ([]domain.UserSummary, error) {
	return summaries(requestersOf(rg.db.WithContext(ctx), userID))
}
