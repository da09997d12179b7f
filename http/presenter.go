package http

import (
	"time"

	"mySocialApp/domain"
)

// The response types below decide what of a record leaves the server.
// Storage ids never do; accounts are always referred to by public id.

type accountView struct {
	PublicID string         `json:"publicId"`
	Email    string         `json:"email"`
	Profile  domain.Profile `json:"profile"`
	Social   domain.Social  `json:"social"`
}

// accountResponse renders the caller's own account after sign up or sign in.
func accountResponse(user *domain.User, social *domain.Social) accountView {
	return accountView{
		PublicID: user.PublicID,
		Email:    user.Email,
		Profile:  user.Profile,
		Social:   nonNilSocial(social),
	}
}

func nonNilSocial(s *domain.Social) domain.Social {
	out := domain.Social{}
	if s != nil {
		out = *s
	}
	for _, list := range []*[]string{&out.Friends, &out.FriendRequests, &out.Followers, &out.Following} {
		if *list == nil {
			*list = []string{}
		}
	}
	return out
}

type profileView struct {
	PublicID  string               `json:"publicId"`
	Email     string               `json:"email,omitempty"`
	Profile   domain.Profile       `json:"profile"`
	Settings  *domain.Settings     `json:"settings,omitempty"`
	Friends   []domain.UserSummary `json:"friends"`
	Followers int                  `json:"followersCount"`
	Following int                  `json:"followingCount"`
	IsSelf    bool                 `json:"isSelf"`
	IsFriend  bool                 `json:"isFriend"`
	Follows   bool                 `json:"isFollowing"`
	Requested bool                 `json:"friendRequestSent"`
	CreatedAt time.Time            `json:"createdAt"`
}

// profileResponse renders user as seen by viewer. Email and settings are
// only shown to the account owner.
func profileResponse(viewer, user *domain.User, friends []domain.UserSummary, social *domain.Social) profileView {
	v := profileView{
		PublicID:  user.PublicID,
		Profile:   user.Profile,
		Friends:   friends,
		Followers: len(social.Followers),
		Following: len(social.Following),
		IsSelf:    viewer.ID == user.ID,
		IsFriend:  containsID(social.Friends, viewer.PublicID),
		Follows:   containsID(social.Followers, viewer.PublicID),
		Requested: containsID(social.FriendRequests, viewer.PublicID),
		CreatedAt: user.CreatedAt,
	}
	if v.Friends == nil {
		v.Friends = []domain.UserSummary{}
	}
	if v.IsSelf {
		v.Email = user.Email
		settings := user.Settings
		v.Settings = &settings
	}
	return v
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type commentView struct {
	ID        int                `json:"id"`
	Author    domain.UserSummary `json:"author"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"createdAt"`
}

func commentResponse(c *domain.Comment) commentView {
	return commentView{
		ID:        c.ID,
		Author:    c.Author.Summary(),
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func commentsResponse(comments []domain.Comment) []commentView {
	out := make([]commentView, len(comments))
	for i := range comments {
		out[i] = commentResponse(&comments[i])
	}
	return out
}

type postView struct {
	ID         int                `json:"id"`
	Author     domain.UserSummary `json:"author"`
	Content    string             `json:"content"`
	Visibility domain.Visibility  `json:"visibility"`
	Tags       []string           `json:"tags"`
	Media      []string           `json:"media"`
	Likes      []string           `json:"likes"`
	LikeCount  int                `json:"likeCount"`
	LikedByMe  bool               `json:"likedByMe"`
	Comments   []commentView      `json:"comments"`
	Shares     []shareView        `json:"shares"`
	ShareCount int                `json:"shareCount"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type shareView struct {
	User     string    `json:"user"`
	SharedAt time.Time `json:"sharedAt"`
}

// postResponse renders post for viewer. Likes are listed as public ids.
func postResponse(viewer *domain.User, post *domain.Post) postView {
	v := postView{
		ID:         post.ID,
		Author:     post.Author.Summary(),
		Content:    post.Content,
		Visibility: post.Visibility,
		Tags:       post.Tags,
		Media:      post.Media,
		Likes:      make([]string, 0, len(post.Likes)),
		LikeCount:  len(post.Likes),
		Comments:   commentsResponse(post.Comments),
		Shares:     make([]shareView, 0, len(post.Shares)),
		ShareCount: len(post.Shares),
		CreatedAt:  post.CreatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.Media == nil {
		v.Media = []string{}
	}
	for _, share := range post.Shares {
		v.Shares = append(v.Shares, shareView{User: share.User.PublicID, SharedAt: share.CreatedAt})
	}
	for _, like := range post.Likes {
		v.Likes = append(v.Likes, like.User.PublicID)
		if like.UserID == viewer.ID {
			v.LikedByMe = true
		}
	}
	return v
}

func postsResponse(viewer *domain.User, posts []domain.Post) []postView {
	out := make([]postView, len(posts))
	for i := range posts {
		out[i] = postResponse(viewer, &posts[i])
	}
	return out
}

func summariesResponse(list []domain.UserSummary) []domain.UserSummary {
	if list == nil {
		return []domain.UserSummary{}
	}
	return list
}
