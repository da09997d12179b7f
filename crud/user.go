package crud

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"mySocialApp/domain"
	"mySocialApp/errs"
)

// SearchLimit caps the number of accounts returned by a name search.
const SearchLimit = 10

// UserService manages Users. It's the account directory of the app: sign up,
// credential checks, profile changes and the public view of an account's social graph.
// It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	pepper       string
	emailRegex   *regexp.Regexp
	websiteRegex *regexp.Regexp
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, pepper string) *UserService {
	return &UserService{
		userValidator{
			pepper:       pepper,
			emailRegex:   regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			websiteRegex: regexp.MustCompile(`^https?://\S+$`),
			userGorm: userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Create runs validations needed for creating new User database records.
// It hashes the password, assigns a fresh public id and applies the default settings.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.namesNormalize,
		uv.namesRequired,
		uv.birthdateRequired,
		uv.genderDefault,
		uv.genderValid,
		uv.bioMaxLength,
		uv.websiteFormat,
		uv.passwordRequired,
		uv.passwordMinLength,
		uv.passwordBcrypt,
		uv.passwordHashRequired,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.emailIsAvail(ctx),
		uv.publicIDAssign,
		uv.statusActivate,
		uv.settingsDefault)
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// Authenticate checks a submitted email address and password for existence and correctness.
func (uv *userValidator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	found, err := uv.userGorm.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
		}
		return nil, err
	}

	// The stored hash was made from the password with the pepper appended.
	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password+uv.pepper))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid password.")
		}
		return nil, err
	}

	switch found.Status {
	case domain.StatusActive:
		return found, nil
	case domain.StatusSuspended:
		return nil, errs.Errorf(errs.EFORBIDDEN, "This account has been suspended.")
	default:
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
}

// ByEmail normalizes the email address before looking it up.
func (uv *userValidator) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return uv.userGorm.ByEmail(ctx, normalizeEmail(email))
}

// UpdateProfile applies the non-nil fields of upd to the user's profile.
// Fields that are not provided stay untouched.
func (uv *userValidator) UpdateProfile(ctx context.Context, publicID string, upd *domain.ProfileUpdate) (*domain.User, error) {
	user, err := uv.userGorm.ByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	columns := map[string]interface{}{}
	set := func(column string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			columns[column] = *dst
		}
	}
	set("profile_firstname", &user.Profile.Firstname, upd.Firstname)
	set("profile_lastname", &user.Profile.Lastname, upd.Lastname)
	set("profile_bio", &user.Profile.Bio, upd.Bio)
	set("profile_job", &user.Profile.Job, upd.Job)
	set("profile_location", &user.Profile.Location, upd.Location)
	set("profile_website", &user.Profile.Website, upd.Website)
	if upd.Gender != nil {
		user.Profile.Gender = *upd.Gender
		columns["profile_gender"] = user.Profile.Gender
	}
	if len(columns) == 0 {
		return nil, errs.Errorf(errs.EINVALID, "Nothing to update.")
	}

	err = runUserValFns(user,
		uv.namesRequired,
		uv.genderValid,
		uv.bioMaxLength,
		uv.websiteFormat)
	if err != nil {
		return nil, err
	}
	if err := uv.userGorm.UpdateColumns(ctx, user, columns); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateImage replaces the avatar or background image url of a user. It returns the
// previous url, so whoever stores the image files can remove the old one.
func (uv *userValidator) UpdateImage(ctx context.Context, publicID string, field domain.ImageField, url string) (string, error) {
	if !field.Valid() {
		return "", errs.Errorf(errs.EINVALID, "Invalid field. Use 'avatar' or 'backgroundImage'.")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errs.Errorf(errs.EINVALID, "An image url is required.")
	}
	user, err := uv.userGorm.ByPublicID(ctx, publicID)
	if err != nil {
		return "", err
	}

	var previous, column string
	if field == domain.ImageAvatar {
		previous, column = user.Profile.Avatar, "profile_avatar"
	} else {
		previous, column = user.Profile.BackgroundImage, "profile_background_image"
	}
	err = uv.userGorm.UpdateColumns(ctx, user, map[string]interface{}{column: url})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// UpdateSettings applies the non-nil fields of upd to the user's settings.
func (uv *userValidator) UpdateSettings(ctx context.Context, publicID string, upd *domain.SettingsUpdate) (*domain.User, error) {
	user, err := uv.userGorm.ByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	columns := map[string]interface{}{}
	if upd.Privacy != nil {
		// A default privacy can't name a target, so specificUser is ruled out here.
		if !upd.Privacy.Valid() || *upd.Privacy == domain.ScopeSpecificUser {
			return nil, errs.Errorf(errs.EINVALID, "Invalid privacy value.")
		}
		user.Settings.Privacy = *upd.Privacy
		columns["settings_privacy"] = user.Settings.Privacy
	}
	setBool := func(column string, dst *bool, v *bool) {
		if v != nil {
			*dst = *v
			columns[column] = *v
		}
	}
	setBool("settings_notify_email", &user.Settings.NotifyEmail, upd.NotifyEmail)
	setBool("settings_notify_sms", &user.Settings.NotifySMS, upd.NotifySMS)
	setBool("settings_notify_push", &user.Settings.NotifyPush, upd.NotifyPush)
	if len(columns) == 0 {
		return nil, errs.Errorf(errs.EINVALID, "Nothing to update.")
	}

	if err := uv.userGorm.UpdateColumns(ctx, user, columns); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus moves an account to another lifecycle state.
func (uv *userValidator) SetStatus(ctx context.Context, publicID string, status domain.Status) error {
	if !status.Valid() {
		return errs.Errorf(errs.EINVALID, "Invalid account status.")
	}
	user, err := uv.userGorm.ByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	return uv.userGorm.UpdateColumns(ctx, user, map[string]interface{}{"status": status})
}

// Search finds active accounts whose first or last name contains the query.
func (uv *userValidator) Search(ctx context.Context, query string, limit int) ([]domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Errorf(errs.EINVALID, "Search query is required.")
	}
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	return uv.userGorm.Search(ctx, strings.ToLower(query), limit)
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object and returns an error.
type userValFn func(user *domain.User) error

// namesNormalize trims the user's first and last name.
func (uv *userValidator) namesNormalize(user *domain.User) error {
	user.Profile.Firstname = strings.TrimSpace(user.Profile.Firstname)
	user.Profile.Lastname = strings.TrimSpace(user.Profile.Lastname)
	return nil
}

// namesRequired makes sure that both first and last name are set.
func (uv *userValidator) namesRequired(user *domain.User) error {
	if user.Profile.Firstname == "" || user.Profile.Lastname == "" {
		return errs.Errorf(errs.EINVALID, "First name and last name are required.")
	}
	return nil
}

func (uv *userValidator) birthdateRequired(user *domain.User) error {
	if user.Profile.Birthdate.IsZero() {
		return errs.Errorf(errs.EINVALID, "A birthdate is required.")
	}
	return nil
}

func (uv *userValidator) genderDefault(user *domain.User) error {
	if user.Profile.Gender == "" {
		user.Profile.Gender = domain.GenderIrrelevant
	}
	return nil
}

func (uv *userValidator) genderValid(user *domain.User) error {
	if !user.Profile.Gender.Valid() {
		return errs.Errorf(errs.EINVALID, "Invalid gender.")
	}
	return nil
}

// bioMaxLength makes sure that the bio does not exceed 200 characters.
func (uv *userValidator) bioMaxLength(user *domain.User) error {
	if utf8.RuneCountInString(user.Profile.Bio) > 200 {
		return errs.Errorf(errs.EINVALID, "The bio must not have more than 200 characters.")
	}
	return nil
}

// websiteFormat makes sure that a provided website is an http(s) url.
func (uv *userValidator) websiteFormat(user *domain.User) error {
	if user.Profile.Website == "" {
		return nil
	}
	if !uv.websiteRegex.MatchString(user.Profile.Website) {
		return errs.Errorf(errs.EINVALID, "The website must start with http:// or https://.")
	}
	return nil
}

// emailFormat makes sure that a provided email address matches a predefined regex pattern.
func (uv *userValidator) emailFormat(user *domain.User) error {
	if !uv.emailRegex.MatchString(user.Email) {
		return errs.Errorf(errs.EINVALID, "The email address is invalid.")
	}
	return nil
}

// emailIsAvail makes sure that a provided email address is not yet taken.
// Emails are stored normalized, so this comparison is case-insensitive.
func (uv *userValidator) emailIsAvail(ctx context.Context) userValFn {
	return func(user *domain.User) error {
		existing, err := uv.userGorm.ByEmail(ctx, user.Email)
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil
		}
		if err != nil {
			return err
		}
		if user.ID != existing.ID {
			return errs.Errorf(errs.ECONFLICT, "This user already exists.")
		}
		return nil
	}
}

// emailNormalize converts the email to all lowercase and trims its whitespaces.
func (uv *userValidator) emailNormalize(user *domain.User) error {
	user.Email = normalizeEmail(user.Email)
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// emailRequired makes sure that the email is not the empty string.
func (uv *userValidator) emailRequired(user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "An email address is required.")
	}
	return nil
}

// passwordBcrypt hashes a user's password with a predefined pepper.
// It then clears the password on the user object in memory.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(user.Password+uv.pepper), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedBytes)
	user.Password = ""
	return nil
}

// passwordHashRequired makes sure that the user's password hash is not the empty string.
func (uv *userValidator) passwordHashRequired(user *domain.User) error {
	if user.PasswordHash == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// passwordMinLength makes sure that the user's password is at least 8 characters long.
func (uv *userValidator) passwordMinLength(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	if utf8.RuneCountInString(user.Password) < 8 {
		return errs.Errorf(errs.EINVALID, "The password must have at least 8 characters.")
	}
	return nil
}

// passwordRequired makes sure that the user's password is not the empty string.
func (uv *userValidator) passwordRequired(user *domain.User) error {
	if user.Password == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

// publicIDAssign gives a new account its external identifier.
func (uv *userValidator) publicIDAssign(user *domain.User) error {
	user.PublicID = uuid.NewString()
	return nil
}

func (uv *userValidator) statusActivate(user *domain.User) error {
	user.Status = domain.StatusActive
	return nil
}

func (uv *userValidator) settingsDefault(user *domain.User) error {
	user.Settings = domain.DefaultSettings()
	return nil
}

// ByID retrieves a User database record by its storage id.
func (ug *userGorm) ByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

// ByPublicID retrieves a User database record by public id.
// Deleted accounts are reported as not found.
func (ug *userGorm) ByPublicID(ctx context.Context, publicID string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).
		Where("public_id = ? AND status <> ?", publicID, domain.StatusDeleted).
		First(&user).Error
	if err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

// ByEmail retrieves a User database record by its normalized email address.
func (ug *userGorm) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

// Create stores the data from the User object in a new database record.
// The unique index on email backs up the availability check against concurrent sign ups.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Errorf(errs.ECONFLICT, "This user already exists.")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateColumns writes only the given columns of the user's record.
func (ug *userGorm) UpdateColumns(ctx context.Context, user *domain.User, columns map[string]interface{}) error {
	err := ug.db.WithContext(ctx).Model(user).Updates(columns).Error
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return nil
}

// Search runs a case-insensitive substring match on first and last names.
func (ug *userGorm) Search(ctx context.Context, query string, limit int) ([]domain.UserSummary, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	db := ug.db.WithContext(ctx)
	q := activeUsers(db).
		Where("LOWER(users.profile_firstname) LIKE ? ESCAPE '!' OR LOWER(users.profile_lastname) LIKE ? ESCAPE '!'", pattern, pattern).
		Limit(limit)
	return summaries(q)
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// Social loads the four relationship sets of a user concurrently.
func (ug *userGorm) Social(ctx context.Context, userID int) (*domain.Social, error) {
	var social domain.Social
	g, gctx := errgroup.WithContext(ctx)
	load := func(dst *[]string, query func(*gorm.DB, int) *gorm.DB) {
		g.Go(func() error {
			ids, err := publicIDs(query(ug.db.WithContext(gctx), userID))
			*dst = ids
			return err
		})
	}
	load(&social.Friends, friendsOf)
	load(&social.FriendRequests, requestersOf)
	load(&social.Followers, followersOf)
	load(&social.Following, followedBy)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load social graph of user %d: %w", userID, err)
	}
	return &social, nil
}

// userLookupErr turns a missing record into an ENOTFOUND application error.
func userLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
	return fmt.Errorf("find user: %w", err)
}
