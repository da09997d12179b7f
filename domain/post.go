package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"mySocialApp/errs"
)

// Scope is the access-control tag of a post.
type Scope string

const (
	ScopePublic       Scope = "public"
	ScopeFriendsOnly  Scope = "friendsOnly"
	ScopePrivate      Scope = "private"
	ScopeSpecificUser Scope = "specificUser"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopePublic, ScopeFriendsOnly, ScopePrivate, ScopeSpecificUser:
		return true
	}
	return false
}

// Visibility decides who may read a post. TargetID is set if and only if
// Scope is ScopeSpecificUser. Target is the public id of that user, which is
// what clients send and receive.
type Visibility struct {
	Scope    Scope  `json:"scope" gorm:"size:16;notNull"`
	TargetID *int   `json:"-" gorm:"index"`
	Target   string `json:"target,omitempty" gorm:"-"`
}

// Check makes sure the scope is known and carries a target exactly when it needs one.
func (v Visibility) Check() error {
	if !v.Scope.Valid() {
		return errs.Errorf(errs.EINVALID, "Invalid privacy value.")
	}
	if v.Scope == ScopeSpecificUser && v.TargetID == nil {
		return errs.Errorf(errs.EINVALID, "A target user is required for specificUser privacy.")
	}
	if v.Scope != ScopeSpecificUser && v.TargetID != nil {
		return errs.Errorf(errs.EINVALID, "A target user is only allowed for specificUser privacy.")
	}
	return nil
}

// Post is owned by its author and never edited after creation. Likes,
// comments and shares are stored in their own tables and go away with the post.
// Media holds the http(s) urls of attached pictures or videos.
type Post struct {
	ID         int        `json:"id"`
	AuthorID   int        `json:"-" gorm:"notNull;index"`
	Author     User       `json:"-" gorm:"foreignKey:AuthorID"`
	Content    string     `json:"content" gorm:"type:text;notNull"`
	Visibility Visibility `json:"visibility" gorm:"embedded;embeddedPrefix:visibility_"`
	Tags       Tags       `json:"tags"`
	Media      Tags       `json:"media"`
	Likes      []Like     `json:"-" gorm:"foreignKey:PostID"`
	Comments   []Comment  `json:"-" gorm:"foreignKey:PostID"`
	Shares     []Share    `json:"-" gorm:"foreignKey:PostID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanView reports whether viewerID may read post. viewerIsFriend tells whether the
// viewer is a friend of the post's author. Authors can always read their own posts.
func CanView(viewerID int, post *Post, viewerIsFriend bool) bool {
	if viewerID == post.AuthorID {
		return true
	}
	switch post.Visibility.Scope {
	case ScopePublic:
		return true
	case ScopeFriendsOnly:
		return viewerIsFriend
	case ScopeSpecificUser:
		return post.Visibility.TargetID != nil && *post.Visibility.TargetID == viewerID
	default:
		return false
	}
}

// Like marks that UserID likes PostID. A user likes a post at most once.
type Like struct {
	ID        int       `json:"-"`
	UserID    int       `json:"-" gorm:"notNull;uniqueIndex:idx_like_pair"`
	User      User      `json:"-"`
	PostID    int       `json:"-" gorm:"notNull;uniqueIndex:idx_like_pair;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// Share records that UserID shared PostID. A user shares a post at most once.
type Share struct {
	ID        int       `json:"-"`
	UserID    int       `json:"-" gorm:"notNull;uniqueIndex:idx_share_pair"`
	User      User      `json:"-"`
	PostID    int       `json:"-" gorm:"notNull;uniqueIndex:idx_share_pair;index"`
	CreatedAt time.Time `json:"sharedAt"`
}

// Comment is appended to a post and never edited.
type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"-" gorm:"notNull;index"`
	AuthorID  int       `json:"-" gorm:"notNull"`
	Author    User      `json:"-" gorm:"foreignKey:AuthorID"`
	Text      string    `json:"text" gorm:"type:text;notNull"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page bounds a list query.
type Page struct {
	Offset int
	Limit  int
}

// Tags is a list of strings stored as a json array in a text column, so it
// works on every supported database. Posts keep their tags and media urls in it.
type Tags []string

func (t *Tags) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return errors.New("tags: unsupported scan type")
	}
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (Tags) GormDataType() string {
	return "text"
}

// PostService is a set of methods to manipulate and work with the Post model.
// Every read is filtered by CanView for the given viewer.
type PostService interface {
	Create(ctx context.Context, post *Post) error
	ByID(ctx context.Context, viewerID, postID int) (*Post, error)
	Delete(ctx context.Context, requesterID, postID int) error
	ToggleLike(ctx context.Context, actorID, postID int) (liked bool, likes int64, err error)
	Share(ctx context.Context, actorID, postID int) (shares int64, err error)
	AddComment(ctx context.Context, actorID, postID int, text string) (*Comment, error)
	Comments(ctx context.Context, viewerID, postID int) ([]Comment, error)
	Feed(ctx context.Context, viewerID int, page Page) ([]Post, error)
	ByAuthor(ctx context.Context, viewerID, authorID int, page Page) ([]Post, error)
}
