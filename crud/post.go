package crud

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/lock"
)

const (
	// MaxContentLength is the maximum length of a post in characters.
	MaxContentLength = 5000
	// MaxCommentLength is the maximum length of a comment in characters.
	MaxCommentLength = 1000
	// MaxTagLength is the maximum length of a single tag in characters.
	MaxTagLength = 50
	// MaxMediaPerPost caps the number of media urls attached to a post.
	MaxMediaPerPost = 10
	// DefaultPageSize is used when a list request doesn't ask for a page size.
	DefaultPageSize = 20
	// MaxPageSize caps the page size of list requests.
	MaxPageSize = 100
)

var mediaURLRegex = regexp.MustCompile(`^https?://\S+$`)

// PostService manages Posts along with their likes, comments and shares.
// Every read goes through the visibility rules of domain.CanView.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type postGorm struct {
	db      *gorm.DB
	locker  lock.Locker
	friends friendChecker
}

// friendChecker answers friendsOnly visibility checks. RelationshipService implements it.
type friendChecker interface {
	AreFriends(ctx context.Context, a, b int) (bool, error)
}

// NewPostService returns an instance of PostService.
func NewPostService(db *gorm.DB, locker lock.Locker, friends friendChecker) *PostService {
	return &PostService{
		postValidator{
			postGorm{
				db:      db,
				locker:  locker,
				friends: friends,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.PostService = &PostService{}

// Create runs validations needed for creating new Post database records.
// A post without a privacy value gets the default privacy of its author.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(post,
		pv.authorIDValid,
		pv.contentMinLength,
		pv.contentMaxLength,
		pv.tagsNormalize,
		pv.mediaValid,
		pv.visibilityDefault(ctx),
		pv.targetResolve(ctx),
		pv.visibilityValid)
	if err != nil {
		return err
	}
	return pv.postGorm.Create(ctx, post)
}

// ToggleLike likes the post for actorID, or removes the like if there already is one.
// Authors cannot like their own posts.
func (pv *postValidator) ToggleLike(ctx context.Context, actorID, postID int) (bool, int64, error) {
	post, err := pv.visible(ctx, actorID, postID)
	if err != nil {
		return false, 0, err
	}
	if post.AuthorID == actorID {
		return false, 0, errs.Errorf(errs.EFORBIDDEN, "You cannot like your own post.")
	}
	return pv.postGorm.ToggleLike(ctx, actorID, post.ID)
}

// Share records that actorID shared a post they can see and returns the new share count.
// Authors cannot share their own posts, and a post is shared at most once per user.
func (pv *postValidator) Share(ctx context.Context, actorID, postID int) (int64, error) {
	post, err := pv.visible(ctx, actorID, postID)
	if err != nil {
		return 0, err
	}
	if post.AuthorID == actorID {
		return 0, errs.Errorf(errs.EFORBIDDEN, "You cannot share your own post.")
	}
	return pv.postGorm.Share(ctx, actorID, post.ID)
}

// AddComment appends a comment to a post the actor can see.
func (pv *postValidator) AddComment(ctx context.Context, actorID, postID int, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Errorf(errs.EINVALID, "Comment text is required.")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, errs.Errorf(errs.EINVALID, "A comment must not have more than %d characters.", MaxCommentLength)
	}
	post, err := pv.visible(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	return pv.postGorm.AddComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: actorID, Text: text})
}

// Comments returns the comments of a post the viewer can see, oldest first.
func (pv *postValidator) Comments(ctx context.Context, viewerID, postID int) ([]domain.Comment, error) {
	post, err := pv.visible(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	return pv.postGorm.Comments(ctx, post.ID)
}

// ByID returns a post with its likes and comments, if the viewer may read it.
func (pv *postValidator) ByID(ctx context.Context, viewerID, postID int) (*domain.Post, error) {
	if _, err := pv.visible(ctx, viewerID, postID); err != nil {
		return nil, err
	}
	return pv.postGorm.ByID(ctx, postID)
}

// Delete removes a post together with its likes and comments. Only the author may do so.
func (pv *postValidator) Delete(ctx context.Context, requesterID, postID int) error {
	post, err := pv.postGorm.find(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return errs.Errorf(errs.EFORBIDDEN, "You can only delete your own posts.")
	}
	return pv.postGorm.Delete(ctx, post)
}

// Feed returns the newest posts the viewer may read.
func (pv *postValidator) Feed(ctx context.Context, viewerID int, page domain.Page) ([]domain.Post, error) {
	return pv.postGorm.List(ctx, viewerID, 0, normalizePage(page))
}

// ByAuthor returns a page of the posts of authorID the viewer may read, newest first.
func (pv *postValidator) ByAuthor(ctx context.Context, viewerID, authorID int, page domain.Page) ([]domain.Post, error) {
	return pv.postGorm.List(ctx, viewerID, authorID, normalizePage(page))
}

func normalizePage(page domain.Page) domain.Page {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Limit <= 0 {
		page.Limit = DefaultPageSize
	}
	if page.Limit > MaxPageSize {
		page.Limit = MaxPageSize
	}
	return page
}

// visible loads a post and makes sure the viewer may read it. A post the
// viewer may not read is reported as not found, so its existence is not leaked.
// Posts of deleted or suspended accounts are only visible to their author.
func (pv *postValidator) visible(ctx context.Context, viewerID, postID int) (*domain.Post, error) {
	post, err := pv.postGorm.find(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != viewerID {
		active, err := pv.postGorm.authorActive(ctx, post.AuthorID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, errs.Errorf(errs.ENOTFOUND, "Post not found.")
		}
	}
	ok, err := pv.postGorm.canView(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "Post not found.")
	}
	return post, nil
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runPostValFns(post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn func(post *domain.Post) error

func (pv *postValidator) authorIDValid(post *domain.Post) error {
	if post.AuthorID <= 0 {
		return errs.Errorf(errs.EINVALID, "A post needs an author.")
	}
	return nil
}

// contentMinLength makes sure that the post's content is not blank.
func (pv *postValidator) contentMinLength(post *domain.Post) error {
	post.Content = strings.TrimSpace(post.Content)
	if post.Content == "" {
		return errs.Errorf(errs.EINVALID, "Post content must not be empty.")
	}
	return nil
}

// contentMaxLength makes sure that the post's content does not exceed the maximum content length.
func (pv *postValidator) contentMaxLength(post *domain.Post) error {
	if utf8.RuneCountInString(post.Content) > MaxContentLength {
		return errs.Errorf(errs.EINVALID, "Post content max length is %d characters.", MaxContentLength)
	}
	return nil
}

// tagsNormalize trims tags, drops empty ones and enforces the tag length limit.
func (pv *postValidator) tagsNormalize(post *domain.Post) error {
	tags := make(domain.Tags, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return errs.Errorf(errs.EINVALID, "A tag must not have more than %d characters.", MaxTagLength)
		}
		tags = append(tags, tag)
	}
	post.Tags = tags
	return nil
}

// mediaValid trims media urls, drops empty ones and only accepts http(s) urls.
func (pv *postValidator) mediaValid(post *domain.Post) error {
	media := make(domain.Tags, 0, len(post.Media))
	for _, url := range post.Media {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if !mediaURLRegex.MatchString(url) {
			return errs.Errorf(errs.EINVALID, "Invalid media URL.")
		}
		media = append(media, url)
	}
	if len(media) > MaxMediaPerPost {
		return errs.Errorf(errs.EINVALID, "A post must not have more than %d media.", MaxMediaPerPost)
	}
	post.Media = media
	return nil
}

// visibilityDefault applies the author's default privacy when none was given.
func (pv *postValidator) visibilityDefault(ctx context.Context) postValFn {
	return func(post *domain.Post) error {
		if post.Visibility.Scope != "" {
			return nil
		}
		var author domain.User
		err := pv.db.WithContext(ctx).Select("id", "settings_privacy").First(&author, "id = ?", post.AuthorID).Error
		if err != nil {
			return userLookupErr(err)
		}
		post.Visibility.Scope = author.Settings.Privacy
		if post.Visibility.Scope == "" {
			post.Visibility.Scope = domain.ScopePublic
		}
		return nil
	}
}

// targetResolve turns the target's public id into its storage id.
// The target must be an active account.
func (pv *postValidator) targetResolve(ctx context.Context) postValFn {
	return func(post *domain.Post) error {
		if post.Visibility.Target == "" {
			return nil
		}
		var target domain.User
		err := pv.db.WithContext(ctx).
			Where("public_id = ? AND status = ?", post.Visibility.Target, domain.StatusActive).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Errorf(errs.ENOTFOUND, "Target user not found.")
		}
		if err != nil {
			return fmt.Errorf("find post target: %w", err)
		}
		post.Visibility.TargetID = &target.ID
		return nil
	}
}

func (pv *postValidator) visibilityValid(post *domain.Post) error {
	return post.Visibility.Check()
}

// canView applies domain.CanView, looking up the friendship only when it matters.
func (pg *postGorm) canView(ctx context.Context, viewerID int, post *domain.Post) (bool, error) {
	isFriend := false
	if post.Visibility.Scope == domain.ScopeFriendsOnly && viewerID != post.AuthorID {
		var err error
		isFriend, err = pg.friends.AreFriends(ctx, viewerID, post.AuthorID)
		if err != nil {
			return false, err
		}
	}
	return domain.CanView(viewerID, post, isFriend), nil
}

// authorActive reports whether the account behind authorID is active.
func (pg *postGorm) authorActive(ctx context.Context, authorID int) (bool, error) {
	var n int64
	err := pg.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND status = ?", authorID, domain.StatusActive).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check author %d: %w", authorID, err)
	}
	return n > 0, nil
}

// find loads the bare post record.
func (pg *postGorm) find(ctx context.Context, postID int) (*domain.Post, error) {
	var post domain.Post
	err := pg.db.WithContext(ctx).First(&post, "id = ?", postID).Error
	if err != nil {
		return nil, postLookupErr(err)
	}
	return &post, nil
}

// withRelations preloads everything a post is rendered with.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("likes.id") }).
		Preload("Likes.User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at, comments.id") }).
		Preload("Comments.Author").
		Preload("Shares", func(db *gorm.DB) *gorm.DB { return db.Order("shares.id") }).
		Preload("Shares.User")
}

// ByID loads a post with its author, likes and comments.
func (pg *postGorm) ByID(ctx context.Context, postID int) (*domain.Post, error) {
	var post domain.Post
	db := pg.db.WithContext(ctx)
	err := withRelations(db).First(&post, "id = ?", postID).Error
	if err != nil {
		return nil, postLookupErr(err)
	}
	if err := fillTargets(db, []*domain.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// Create stores the post and reloads it with its relations.
func (pg *postGorm) Create(ctx context.Context, post *domain.Post) error {
	err := pg.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	created, err := pg.ByID(ctx, post.ID)
	if err != nil {
		return err
	}
	*post = *created
	return nil
}

// Delete removes the post, its likes, comments and shares in one transaction.
func (pg *postGorm) Delete(ctx context.Context, post *domain.Post) error {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&domain.Share{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Post{}, post.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", post.ID, err)
	}
	return nil
}

// ToggleLike flips the like of userID on postID and returns the new like count.
func (pg *postGorm) ToggleLike(ctx context.Context, userID, postID int) (bool, int64, error) {
	unlock, err := pg.locker.Lock(ctx, fmt.Sprintf("like:%d:%d", userID, postID))
	if err != nil {
		return false, 0, fmt.Errorf("lock like: %w", err)
	}
	defer unlock()
	ctx, cancel := lock.Bound(ctx, pg.locker)
	defer cancel()

	var (
		liked bool
		count int64
	)
	err = pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&domain.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			liked = true
			if err := tx.Create(&domain.Like{UserID: userID, PostID: postID}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Like{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}
	return liked, count, nil
}

// Share stores the share of userID on postID and returns the new share count.
func (pg *postGorm) Share(ctx context.Context, userID, postID int) (int64, error) {
	unlock, err := pg.locker.Lock(ctx, fmt.Sprintf("share:%d:%d", userID, postID))
	if err != nil {
		return 0, fmt.Errorf("lock share: %w", err)
	}
	defer unlock()
	ctx, cancel := lock.Bound(ctx, pg.locker)
	defer cancel()

	var count int64
	err = pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Share{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errs.Errorf(errs.ECONFLICT, "You already shared this post.")
		}
		if err := tx.Create(&domain.Share{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Share{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return 0, fmt.Errorf("share post: %w", err)
	}
	return count, nil
}

// AddComment stores the comment and loads its author.
func (pg *postGorm) AddComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	db := pg.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := db.First(&comment.Author, "id = ?", comment.AuthorID).Error; err != nil {
		return nil, userLookupErr(err)
	}
	return comment, nil
}

// Comments lists the comments of a post, oldest first.
func (pg *postGorm) Comments(ctx context.Context, postID int) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	err := pg.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at, id").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

// List returns posts newest first, restricted to authorID when it is > 0.
// The query narrows the result down to what viewerID may read and every
// row is checked again with domain.CanView before it is returned.
func (pg *postGorm) List(ctx context.Context, viewerID, authorID int, page domain.Page) ([]domain.Post, error) {
	db := pg.db.WithContext(ctx)
	friends, err := friendIDSet(db, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load friends of user %d: %w", viewerID, err)
	}

	q := withRelations(db).
		Where("posts.author_id = ? OR posts.author_id IN (?)", viewerID,
			db.Model(&domain.User{}).Select("id").Where("status = ?", domain.StatusActive)).
		Where(db.Where("posts.author_id = ?", viewerID).
			Or("posts.visibility_scope = ?", domain.ScopePublic).
			Or("posts.visibility_scope = ? AND posts.visibility_target_id = ?", domain.ScopeSpecificUser, viewerID).
			Or("posts.visibility_scope = ? AND (posts.author_id IN (?) OR posts.author_id IN (?))", domain.ScopeFriendsOnly,
				db.Model(&domain.Friendship{}).Select("friend_id").Where("user_id = ?", viewerID),
				db.Model(&domain.Friendship{}).Select("user_id").Where("friend_id = ?", viewerID)))
	if authorID > 0 {
		q = q.Where("posts.author_id = ?", authorID)
	}

	var rows []domain.Post
	err = q.Order("posts.created_at DESC, posts.id DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]domain.Post, 0, len(rows))
	for i := range rows {
		if domain.CanView(viewerID, &rows[i], friends[rows[i].AuthorID]) {
			posts = append(posts, rows[i])
		}
	}
	refs := make([]*domain.Post, len(posts))
	for i := range posts {
		refs[i] = &posts[i]
	}
	if err := fillTargets(db, refs); err != nil {
		return nil, err
	}
	return posts, nil
}

// fillTargets sets the public id of the target of specificUser posts.
func fillTargets(db *gorm.DB, posts []*domain.Post) error {
	var ids []int
	for _, p := range posts {
		if p.Visibility.TargetID != nil {
			ids = append(ids, *p.Visibility.TargetID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var users []domain.User
	if err := db.Select("id", "public_id").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return fmt.Errorf("load post targets: %w", err)
	}
	byID := make(map[int]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.PublicID
	}
	for _, p := range posts {
		if p.Visibility.TargetID != nil {
			p.Visibility.Target = byID[*p.Visibility.TargetID]
		}
	}
	return nil
}

// postLookupErr turns a missing record into an ENOTFOUND application error.
func postLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "Post not found.")
	}
	return fmt.Errorf("find post: %w", err)
}
