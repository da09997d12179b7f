package domain

import (
	"context"
	"strings"
	"time"
)

// Status is the lifecycle state of an account. Accounts are never hard-deleted,
// they move to StatusDeleted instead.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale       Gender = "male"
	GenderFemale     Gender = "female"
	GenderCustom     Gender = "custom"
	GenderIrrelevant Gender = "irrelevant"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderCustom, GenderIrrelevant:
		return true
	}
	return false
}

// User is an account of the social network. ID is the storage key and never leaves
// the server; clients only ever see the PublicID.
type User struct {
	ID       int    `json:"-"`
	PublicID string `json:"publicId" gorm:"size:36;notNull;uniqueIndex"`
	Email    string `json:"email" gorm:"notNull;uniqueIndex"`

	// Password is only set while signing up. It is cleared once it's been hashed.
	Password     string `json:"-" gorm:"-"`
	PasswordHash string `json:"-" gorm:"notNull"`

	Profile  Profile  `json:"profile" gorm:"embedded;embeddedPrefix:profile_"`
	Settings Settings `json:"settings" gorm:"embedded;embeddedPrefix:settings_"`
	Status   Status   `json:"status" gorm:"size:16;notNull"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether the account can sign in and take part in the social graph.
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// Summary returns the short public representation of the user used in lists.
func (u *User) Summary() UserSummary {
	return UserSummary{
		PublicID: u.PublicID,
		FullName: u.Profile.FullName(),
		Avatar:   u.Profile.Avatar,
	}
}

// Profile holds the display attributes of an account.
type Profile struct {
	Firstname       string    `json:"firstname" gorm:"notNull"`
	Lastname        string    `json:"lastname" gorm:"notNull"`
	Avatar          string    `json:"avatar"`
	BackgroundImage string    `json:"backgroundImage"`
	Bio             string    `json:"bio" gorm:"size:200"`
	Job             string    `json:"job"`
	Location        string    `json:"location"`
	Birthdate       time.Time `json:"birthdate"`
	Gender          Gender    `json:"gender" gorm:"size:16"`
	Website         string    `json:"website"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.Firstname + " " + p.Lastname)
}

// Settings holds per-account preferences. Privacy is the default visibility
// of new posts that don't name one.
type Settings struct {
	Privacy     Scope `json:"privacy" gorm:"column:privacy;size:16"`
	NotifyEmail bool  `json:"notifyEmail" gorm:"column:notify_email"`
	NotifySMS   bool  `json:"notifySms" gorm:"column:notify_sms"`
	NotifyPush  bool  `json:"notifyPush" gorm:"column:notify_push"`
}

// DefaultSettings are applied to every new account.
func DefaultSettings() Settings {
	return Settings{
		Privacy:     ScopePublic,
		NotifyEmail: true,
		NotifySMS:   false,
		NotifyPush:  true,
	}
}

// UserSummary is what other users get to see of an account in lists and search results.
type UserSummary struct {
	PublicID string `json:"publicId"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Social holds the four relationship sets of an account as public ids.
type Social struct {
	Friends        []string `json:"friends"`
	FriendRequests []string `json:"friendRequests"`
	Followers      []string `json:"followers"`
	Following      []string `json:"following"`
}

// ProfileUpdate is a partial profile update. Nil fields are left untouched.
type ProfileUpdate struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Bio       *string `json:"bio"`
	Job       *string `json:"job"`
	Location  *string `json:"location"`
	Website   *string `json:"website"`
	Gender    *Gender `json:"gender"`
}

// SettingsUpdate is a partial settings update. Nil fields are left untouched.
type SettingsUpdate struct {
	Privacy     *Scope `json:"privacy"`
	NotifyEmail *bool  `json:"notifyEmail"`
	NotifySMS   *bool  `json:"notifySms"`
	NotifyPush  *bool  `json:"notifyPush"`
}

// ImageField names one of the two image urls of a profile.
type ImageField string

const (
	ImageAvatar     ImageField = "avatar"
	ImageBackground ImageField = "backgroundImage"
)

func (f ImageField) Valid() bool {
	return f == ImageAvatar || f == ImageBackground
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	Create(ctx context.Context, user *User) error
	Authenticate(ctx context.Context, email, password string) (*User, error)
	ByID(ctx context.Context, id int) (*User, error)
	ByPublicID(ctx context.Context, publicID string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, publicID string, upd *ProfileUpdate) (*User, error)
	UpdateImage(ctx context.Context, publicID string, field ImageField, url string) (previous string, err error)
	UpdateSettings(ctx context.Context, publicID string, upd *SettingsUpdate) (*User, error)
	SetStatus(ctx context.Context, publicID string, status Status) error
	Search(ctx context.Context, query string, limit int) ([]UserSummary, error)
	Social(ctx context.Context, userID int) (*Social, error)
}
