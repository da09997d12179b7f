package crud

import (
	"gorm.io/gorm"

	"mySocialApp/domain"
)

// The helpers below build queries over the users table restricted to one
// relationship set of userID. Only active accounts are ever listed.

// friendsOf selects the friends of userID. A friendship row may hold userID on either side.
func friendsOf(db *gorm.DB, userID int) *gorm.DB {
	return activeUsers(db).
		Where("users.id IN (?) OR users.id IN (?)",
			db.Model(&domain.Friendship{}).Select("friend_id").Where("user_id = ?", userID),
			db.Model(&domain.Friendship{}).Select("user_id").Where("friend_id = ?", userID))
}

// followersOf selects the users following userID.
func followersOf(db *gorm.DB, userID int) *gorm.DB {
	return activeUsers(db).
		Where("users.id IN (?)", db.Model(&domain.Follow{}).Select("follower_id").Where("followed_id = ?", userID))
}

// followedBy selects the users userID is following.
func followedBy(db *gorm.DB, userID int) *gorm.DB {
	return activeUsers(db).
		Where("users.id IN (?)", db.Model(&domain.Follow{}).Select("followed_id").Where("follower_id = ?", userID))
}

// requestersOf selects the users with a pending friend request to userID.
func requestersOf(db *gorm.DB, userID int) *gorm.DB {
	return activeUsers(db).
		Where("users.id IN (?)", db.Model(&domain.FriendRequest{}).Select("requester_id").Where("recipient_id = ?", userID))
}

func activeUsers(db *gorm.DB) *gorm.DB {
	return db.Model(&domain.User{}).Where("users.status = ?", domain.StatusActive)
}

// publicIDs runs q and returns the public ids of the selected users.
func publicIDs(q *gorm.DB) ([]string, error) {
	ids := []string{}
	err := q.Order("users.id").Pluck("users.public_id", &ids).Error
	return ids, err
}

// summaries runs q and returns the selected users as summaries, sorted by name.
func summaries(q *gorm.DB) ([]domain.UserSummary, error) {
	var users []domain.User
	err := q.Order("users.profile_firstname, users.profile_lastname, users.id").Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// areFriends reports whether a and b share a friendship row.
func areFriends(db *gorm.DB, a, b int) (bool, error) {
	f := domain.NewFriendship(a, b)
	var n int64
	err := db.Model(&domain.Friendship{}).
		Where("user_id = ? AND friend_id = ?", f.UserID, f.FriendID).
		Count(&n).Error
	return n > 0, err
}

// friendIDSet returns the ids of all friends of userID, whatever their status.
func friendIDSet(db *gorm.DB, userID int) (map[int]bool, error) {
	var rows []domain.Friendship
	err := db.Where("user_id = ? OR friend_id = ?", userID, userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(rows))
	for _, f := range rows {
		if f.UserID == userID {
			set[f.FriendID] = true
		} else {
			set[f.UserID] = true
		}
	}
	return set, nil
}
