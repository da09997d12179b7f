package crud

import (
	"context"
	"strings"
	"testing"

	"mySocialApp/domain"
	"mySocialApp/errs"
)

func createPost(t *testing.T, s *Services, author *domain.User, scope domain.Scope, target string) *domain.Post {
	t.Helper()
	post := &domain.Post{
		AuthorID:   author.ID,
		Content:    string(scope) + " post",
		Visibility: domain.Visibility{Scope: scope, Target: target},
	}
	if err := s.Post.Create(context.Background(), post); err != nil {
		t.Fatalf("create %s post: %v", scope, err)
	}
	return post
}

func befriend(t *testing.T, s *Services, a, b *domain.User) {
	t.Helper()
	ctx := context.Background()
	if err := s.Relationship.SendFriendRequest(ctx, a.PublicID, b.PublicID); err != nil {
		t.Fatal(err)
	}
	if err := s.Relationship.ResolveFriendRequest(ctx, b.PublicID, a.PublicID, domain.RequestAccept); err != nil {
		t.Fatal(err)
	}
}

func TestCreatePost(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")

	post := &domain.Post{AuthorID: a.ID, Content: "  hi  ", Tags: domain.Tags{" go ", "", "social"}}
	if err := s.Post.Create(ctx, post); err != nil {
		t.Fatal(err)
	}
	if post.Content != "hi" || post.Visibility.Scope != domain.ScopePublic {
		t.Fatalf("unexpected post %+v", post)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "go" {
		t.Fatalf("unexpected tags %v", post.Tags)
	}
	if post.Author.PublicID != a.PublicID {
		t.Fatal("expected the author to be loaded")
	}

	specific := createPost(t, s, a, domain.ScopeSpecificUser, b.PublicID)
	if specific.Visibility.TargetID == nil || *specific.Visibility.TargetID != b.ID || specific.Visibility.Target != b.PublicID {
		t.Fatalf("unexpected target %+v", specific.Visibility)
	}

	tests := map[string]struct {
		post *domain.Post
		code string
	}{
		"blank content":  {&domain.Post{AuthorID: a.ID, Content: "   "}, errs.EINVALID},
		"too long":       {&domain.Post{AuthorID: a.ID, Content: strings.Repeat("x", MaxContentLength+1)}, errs.EINVALID},
		"missing target": {&domain.Post{AuthorID: a.ID, Content: "x", Visibility: domain.Visibility{Scope: domain.ScopeSpecificUser}}, errs.EINVALID},
		"unknown target": {&domain.Post{AuthorID: a.ID, Content: "x", Visibility: domain.Visibility{Scope: domain.ScopeSpecificUser, Target: "nope"}}, errs.ENOTFOUND},
		"stray target":   {&domain.Post{AuthorID: a.ID, Content: "x", Visibility: domain.Visibility{Scope: domain.ScopePublic, Target: b.PublicID}}, errs.EINVALID},
		"unknown scope":  {&domain.Post{AuthorID: a.ID, Content: "x", Visibility: domain.Visibility{Scope: "world"}}, errs.EINVALID},
		"long tag":       {&domain.Post{AuthorID: a.ID, Content: "x", Tags: domain.Tags{strings.Repeat("t", MaxTagLength+1)}}, errs.EINVALID},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			expectCode(t, s.Post.Create(ctx, tt.post), tt.code)
		})
	}
}

func TestCreatePostUsesDefaultPrivacy(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := createUser(t, s, "a@x.com")

	friendsOnly := domain.ScopeFriendsOnly
	if _, err := s.User.UpdateSettings(ctx, a.PublicID, &domain.SettingsUpdate{Privacy: &friendsOnly}); err != nil {
		t.Fatal(err)
	}
	post := createPost(t, s, a, "", "")
	if post.Visibility.Scope != domain.ScopeFriendsOnly {
		t.Fatalf("expected friendsOnly, got %q", post.Visibility.Scope)
	}
}

func TestPostVisibility(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	author := createUser(t, s, "author@x.com")
	friend := createUser(t, s, "friend@x.com")
	stranger := createUser(t, s, "stranger@x.com")
	target := createUser(t, s, "target@x.com")
	befriend(t, s, author, friend)

	public := createPost(t, s, author, domain.ScopePublic, "")
	friendsOnly := createPost(t, s, author, domain.ScopeFriendsOnly, "")
	private := createPost(t, s, author, domain.ScopePrivate, "")
	specific := createPost(t, s, author, domain.ScopeSpecificUser, target.PublicID)

	visible := map[*domain.User][]*domain.Post{
		author:   {public, friendsOnly, private, specific},
		friend:   {public, friendsOnly},
		stranger: {public},
		target:   {public, specific},
	}
	all := []*domain.Post{public, friendsOnly, private, specific}

	for viewer, want := range visible {
		canSee := map[int]bool{}
		for _, p := range want {
			canSee[p.ID] = true
		}
		for _, p := range all {
			_, err := s.Post.ByID(ctx, viewer.ID, p.ID)
			if canSee[p.ID] && err != nil {
				t.Fatalf("%s should see the %s post: %v", viewer.Email, p.Visibility.Scope, err)
			}
			if !canSee[p.ID] {
				expectCode(t, err, errs.ENOTFOUND)
			}
		}

		feed, err := s.Post.Feed(ctx, viewer.ID, domain.Page{})
		if err != nil {
			t.Fatal(err)
		}
		if len(feed) != len(want) {
			t.Fatalf("%s: expected %d posts in feed got %d", viewer.Email, len(want), len(feed))
		}
		for _, p := range feed {
			if !canSee[p.ID] {
				t.Fatalf("%s sees the %s post in the feed", viewer.Email, p.Visibility.Scope)
			}
		}

		byAuthor, err := s.Post.ByAuthor(ctx, viewer.ID, author.ID, domain.Page{})
		if err != nil {
			t.Fatal(err)
		}
		if len(byAuthor) != len(want) {
			t.Fatalf("%s: expected %d posts by author got %d", viewer.Email, len(want), len(byAuthor))
		}
	}
}

func TestFeedIsNewestFirstAndPaged(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	first := createPost(t, s, a, domain.ScopePublic, "")
	second := createPost(t, s, b, domain.ScopePublic, "")

	feed, err := s.Post.Feed(ctx, a.ID, domain.Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 2 || feed[0].ID != second.ID || feed[1].ID != first.ID {
		t.Fatalf("unexpected order %v", feed)
	}
	page, _ := s.Post.Feed(ctx, a.ID, domain.Page{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].ID != first.ID {
		t.Fatalf("unexpected page %v", page)
	}

	if err := s.User.SetStatus(ctx, b.PublicID, domain.StatusDeleted); err != nil {
		t.Fatal(err)
	}
	feed, _ = s.Post.Feed(ctx, a.ID, domain.Page{})
	if len(feed) != 1 {
		t.Fatalf("expected posts of deleted accounts to be hidden, got %d", len(feed))
	}
}

func TestToggleLike(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	post := createPost(t, s, a, domain.ScopePublic, "")

	_, _, err := s.Post.ToggleLike(ctx, a.ID, post.ID)
	expectCode(t, err, errs.EFORBIDDEN)

	liked, count, err := s.Post.ToggleLike(ctx, b.ID, post.ID)
	if err != nil || !liked || count != 1 {
		t.Fatalf("like: liked %v count %d err %v", liked, count, err)
	}
	got, _ := s.Post.ByID(ctx, a.ID, post.ID)
	if len(got.Likes) != 1 || got.Likes[0].User.PublicID != b.PublicID {
		t.Fatalf("unexpected likes %+v", got.Likes)
	}

	liked, count, err = s.Post.ToggleLike(ctx, b.ID, post.ID)
	if err != nil || liked || count != 0 {
		t.Fatalf("unlike: liked %v count %d err %v", liked, count, err)
	}

	private := createPost(t, s, a, domain.ScopePrivate, "")
	_, _, err = s.Post.ToggleLike(ctx, b.ID, private.ID)
	expectCode(t, err, errs.ENOTFOUND)
}

func TestComments(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	post := createPost(t, s, a, domain.ScopePublic, "")

	_, err := s.Post.AddComment(ctx, b.ID, post.ID, "   ")
	expectCode(t, err, errs.EINVALID)
	_, err = s.Post.AddComment(ctx, b.ID, post.ID, strings.Repeat("c", MaxCommentLength+1))
	expectCode(t, err, errs.EINVALID)

	for _, text := range []string{"first", "second"} {
		c, err := s.Post.AddComment(ctx, b.ID, post.ID, text)
		if err != nil {
			t.Fatal(err)
		}
		if c.Author.PublicID != b.PublicID {
			t.Fatal("expected the comment author to be loaded")
		}
	}
	comments, err := s.Post.Comments(ctx, a.ID, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Text != "second" {
		t.Fatalf("unexpected comments %+v", comments)
	}

	private := createPost(t, s, a, domain.ScopePrivate, "")
	_, err = s.Post.AddComment(ctx, b.ID, private.ID, "hi")
	expectCode(t, err, errs.ENOTFOUND)
	_, err = s.Post.Comments(ctx, b.ID, private.ID)
	expectCode(t, err, errs.ENOTFOUND)
}

func TestDeletePost(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	post := createPost(t, s, a, domain.ScopePublic, "")
	if _, _, err := s.Post.ToggleLike(ctx, b.ID, post.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Post.AddComment(ctx, b.ID, post.ID, "nice"); err != nil {
		t.Fatal(err)
	}

	expectCode(t, s.Post.Delete(ctx, b.ID, post.ID), errs.EFORBIDDEN)
	if err := s.Post.Delete(ctx, a.ID, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := s.Post.ByID(ctx, a.ID, post.ID)
	expectCode(t, err, errs.ENOTFOUND)
	expectCode(t, s.Post.Delete(ctx, a.ID, post.ID), errs.ENOTFOUND)

	var likes, comments int64
	s.db.Model(&domain.Like{}).Where("post_id = ?", post.ID).Count(&likes)
	s.db.Model(&domain.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	if likes != 0 || comments != 0 {
		t.Fatalf("expected likes and comments to be removed, got %d and %d", likes, comments)
	}
}

func TestPostsOfInactiveAuthorsAreHidden(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusDeleted, domain.StatusSuspended} {
		t.Run(string(status), func(t *testing.T) {
			s := newTestServices(t)
			ctx := context.Background()
			a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
			post := createPost(t, s, a, domain.ScopePublic, "")
			if err := s.User.SetStatus(ctx, a.PublicID, status); err != nil {
				t.Fatal(err)
			}

			_, err := s.Post.ByID(ctx, b.ID, post.ID)
			expectCode(t, err, errs.ENOTFOUND)
			_, _, err = s.Post.ToggleLike(ctx, b.ID, post.ID)
			expectCode(t, err, errs.ENOTFOUND)
			_, err = s.Post.AddComment(ctx, b.ID, post.ID, "hello?")
			expectCode(t, err, errs.ENOTFOUND)
			_, err = s.Post.Comments(ctx, b.ID, post.ID)
			expectCode(t, err, errs.ENOTFOUND)

			if _, err := s.Post.ByID(ctx, a.ID, post.ID); err != nil {
				t.Fatalf("the author should still read the post: %v", err)
			}
		})
	}
}

func TestByAuthorIsPaged(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	var ids []int
	for i := 0; i < 5; i++ {
		ids = append(ids, createPost(t, s, a, domain.ScopePublic, "").ID)
	}

	page, err := s.Post.ByAuthor(ctx, b.ID, a.ID, domain.Page{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != ids[3] || page[1].ID != ids[2] {
		t.Fatalf("unexpected page %v", page)
	}
	rest, _ := s.Post.ByAuthor(ctx, b.ID, a.ID, domain.Page{Offset: 4})
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Fatalf("unexpected last page %v", rest)
	}
}

// fixedFriends answers every friendship check with its own value.
type fixedFriends struct {
	friends bool
	calls   int
}

func (f *fixedFriends) AreFriends(ctx context.Context, a, b int) (bool, error) {
	f.calls++
	return f.friends, nil
}

func TestFriendsOnlyAsksTheFriendChecker(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com")
	post := createPost(t, s, a, domain.ScopeFriendsOnly, "")

	friends := &fixedFriends{friends: true}
	ps := NewPostService(s.db, s.locker, friends)
	if _, err := ps.ByID(ctx, b.ID, post.ID); err != nil {
		t.Fatalf("expected the checker to grant access: %v", err)
	}
	friends.friends = false
	_, err := ps.ByID(ctx, b.ID, post.ID)
	expectCode(t, err, errs.ENOTFOUND)
	if friends.calls != 2 {
		t.Fatalf("expected 2 friendship checks got %d", friends.calls)
	}

	if _, err := ps.ByID(ctx, a.ID, post.ID); err != nil {
		t.Fatalf("the author needs no friendship check: %v", err)
	}
	if friends.calls != 2 {
		t.Fatalf("expected no check for the author, got %d calls", friends.calls)
	}
}

func TestPostMedia(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := createUser(t, s, "a@x.com")

	post := &domain.Post{
		AuthorID: a.ID,
		Content:  "look",
		Media:    domain.Tags{" https://cdn.example.com/a.png ", "", "http://cdn.example.com/b.mp4"},
	}
	if err := s.Post.Create(ctx, post); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.Post.ByID(ctx, a.ID, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Media) != 2 || got.Media[0] != "https://cdn.example.com/a.png" || got.Media[1] != "http://cdn.example.com/b.mp4" {
		t.Fatalf("unexpected media %v", got.Media)
	}

	for _, url := range []string{"ftp://cdn.example.com/a.png", "cdn.example.com/a.png", "javascript:alert(1)", "https://"} {
		err := s.Post.Create(ctx, &domain.Post{AuthorID: a.ID, Content: "bad", Media: domain.Tags{url}})
		expectCode(t, err, errs.EINVALID)
	}

	many := make(domain.Tags, MaxMediaPerPost+1)
	for i := range many {
		many[i] = "https://cdn.example.com/x.png"
	}
	err = s.Post.Create(ctx, &domain.Post{AuthorID: a.ID, Content: "many", Media: many})
	expectCode(t, err, errs.EINVALID)
}

func TestSharePost(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a, b, c := createUser(t, s, "a@x.com"), createUser(t, s, "b@x.com"), createUser(t, s, "c@x.com")
	post := createPost(t, s, a, domain.ScopePublic, "")

	_, err := s.Post.Share(ctx, a.ID, post.ID)
	expectCode(t, err, errs.EFORBIDDEN)

	count, err := s.Post.Share(ctx, b.ID, post.ID)
	if err != nil || count != 1 {
		t.Fatalf("share: count %d err %v", count, err)
	}
	_, err = s.Post.Share(ctx, b.ID, post.ID)
	expectCode(t, err, errs.ECONFLICT)
	if count, _ = s.Post.Share(ctx, c.ID, post.ID); count != 2 {
		t.Fatalf("expected 2 shares got %d", count)
	}

	got, _ := s.Post.ByID(ctx, a.ID, post.ID)
	if len(got.Shares) != 2 || got.Shares[0].User.PublicID != b.PublicID || got.Shares[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected shares %+v", got.Shares)
	}

	private := createPost(t, s, a, domain.ScopePrivate, "")
	_, err = s.Post.Share(ctx, b.ID, private.ID)
	expectCode(t, err, errs.ENOTFOUND)

	if err := s.Post.Delete(ctx, a.ID, post.ID); err != nil {
		t.Fatal(err)
	}
	var shares int64
	s.db.Model(&domain.Share{}).Where("post_id = ?", post.ID).Count(&shares)
	if shares != 0 {
		t.Fatalf("expected shares to be removed, got %d", shares)
	}
}
