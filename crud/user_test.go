package crud

import (
	"context"
	"testing"
	"time"

	"mySocialApp/domain"
	"mySocialApp/errs"
)

func TestCreateUser(t *testing.T) {
	s := newTestServices(t)
	user := createUser(t, s, " Alice@Example.com ")

	if user.Email != "alice@example.com" {
		t.Fatalf("expected a normalized email, got %q", user.Email)
	}
	if user.PublicID == "" || user.ID == 0 {
		t.Fatal("expected ids to be assigned")
	}
	if user.Password != "" || user.PasswordHash == "" {
		t.Fatal("expected the password to be hashed and cleared")
	}
	if user.Status != domain.StatusActive || user.Profile.Gender != domain.GenderIrrelevant {
		t.Fatalf("unexpected defaults: status %q gender %q", user.Status, user.Profile.Gender)
	}
	if user.Settings != domain.DefaultSettings() {
		t.Fatalf("unexpected settings %+v", user.Settings)
	}
}

func TestCreateUserEmailConflict(t *testing.T) {
	s := newTestServices(t)
	createUser(t, s, "a@x.com")

	dup := &domain.User{
		Email:    "A@X.COM",
		Password: testPassword,
		Profile:  domain.Profile{Firstname: "A", Lastname: "B", Birthdate: time.Now()},
	}
	expectCode(t, s.User.Create(context.Background(), dup), errs.ECONFLICT)

	var n int64
	s.db.Model(&domain.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected a single account, got %d", n)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestServices(t)
	valid := func() *domain.User {
		return &domain.User{
			Email:    "v@x.com",
			Password: testPassword,
			Profile:  domain.Profile{Firstname: "V", Lastname: "W", Birthdate: time.Now()},
		}
	}
	tests := map[string]func(u *domain.User){
		"missing firstname": func(u *domain.User) { u.Profile.Firstname = "  " },
		"missing birthdate": func(u *domain.User) { u.Profile.Birthdate = time.Time{} },
		"short password":    func(u *domain.User) { u.Password = "short" },
		"missing password":  func(u *domain.User) { u.Password = "" },
		"bad email":         func(u *domain.User) { u.Email = "not-an-email" },
		"bad website":       func(u *domain.User) { u.Profile.Website = "ftp://example.com" },
		"bad gender":        func(u *domain.User) { u.Profile.Gender = "robot" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			u := valid()
			mutate(u)
			expectCode(t, s.User.Create(context.Background(), u), errs.EINVALID)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := createUser(t, s, "a@x.com")

	got, err := s.User.Authenticate(ctx, "A@x.com", testPassword)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.PublicID != user.PublicID {
		t.Fatalf("expected %s got %s", user.PublicID, got.PublicID)
	}

	_, err = s.User.Authenticate(ctx, "a@x.com", "wrong password")
	expectCode(t, err, errs.EUNAUTHORIZED)

	_, err = s.User.Authenticate(ctx, "nobody@x.com", testPassword)
	expectCode(t, err, errs.ENOTFOUND)

	if err := s.User.SetStatus(ctx, user.PublicID, domain.StatusSuspended); err != nil {
		t.Fatal(err)
	}
	_, err = s.User.Authenticate(ctx, "a@x.com", testPassword)
	expectCode(t, err, errs.EFORBIDDEN)

	if err := s.User.SetStatus(ctx, user.PublicID, domain.StatusDeleted); err != nil {
		t.Fatal(err)
	}
	_, err = s.User.Authenticate(ctx, "a@x.com", testPassword)
	expectCode(t, err, errs.ENOTFOUND)
	_, err = s.User.ByPublicID(ctx, user.PublicID)
	expectCode(t, err, errs.ENOTFOUND)
}

func TestUpdateProfileIsPartial(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := createUser(t, s, "a@x.com")

	bio := "Hello there"
	site := "https://example.com"
	_, err := s.User.UpdateProfile(ctx, user.PublicID, &domain.ProfileUpdate{Bio: &bio, Website: &site})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}

	got, err := s.User.ByPublicID(ctx, user.PublicID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Profile.Bio != bio || got.Profile.Website != site {
		t.Fatalf("fields not updated: %+v", got.Profile)
	}
	if got.Profile.Firstname != user.Profile.Firstname || got.Profile.Lastname != user.Profile.Lastname {
		t.Fatalf("untouched fields changed: %+v", got.Profile)
	}

	bad := "www.example.com"
	_, err = s.User.UpdateProfile(ctx, user.PublicID, &domain.ProfileUpdate{Website: &bad})
	expectCode(t, err, errs.EINVALID)

	_, err = s.User.UpdateProfile(ctx, user.PublicID, &domain.ProfileUpdate{})
	expectCode(t, err, errs.EINVALID)
}

func TestUpdateImageReturnsPrevious(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := createUser(t, s, "a@x.com")

	prev, err := s.User.UpdateImage(ctx, user.PublicID, domain.ImageAvatar, "https://cdn/1.png")
	if err != nil || prev != "" {
		t.Fatalf("first update: prev %q err %v", prev, err)
	}
	prev, err = s.User.UpdateImage(ctx, user.PublicID, domain.ImageAvatar, "https://cdn/2.png")
	if err != nil || prev != "https://cdn/1.png" {
		t.Fatalf("second update: prev %q err %v", prev, err)
	}

	_, err = s.User.UpdateImage(ctx, user.PublicID, "cover", "https://cdn/3.png")
	expectCode(t, err, errs.EINVALID)
}

func TestUpdateSettings(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	user := createUser(t, s, "a@x.com")

	private := domain.ScopePrivate
	off := false
	if _, err := s.User.UpdateSettings(ctx, user.PublicID, &domain.SettingsUpdate{Privacy: &private, NotifyEmail: &off}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.User.ByPublicID(ctx, user.PublicID)
	if got.Settings.Privacy != domain.ScopePrivate || got.Settings.NotifyEmail || !got.Settings.NotifyPush {
		t.Fatalf("unexpected settings %+v", got.Settings)
	}

	specific := domain.ScopeSpecificUser
	_, err := s.User.UpdateSettings(ctx, user.PublicID, &domain.SettingsUpdate{Privacy: &specific})
	expectCode(t, err, errs.EINVALID)
}

func TestSearch(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	createUser(t, s, "alice@x.com")
	createUser(t, s, "malika@x.com")
	bob := createUser(t, s, "bob@x.com")

	got, err := s.User.Search(ctx, "ALI", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].FullName != "Alice Tester" || got[1].FullName != "Malika Tester" {
		t.Fatalf("unexpected results %+v", got)
	}

	if err := s.User.SetStatus(ctx, bob.PublicID, domain.StatusDeleted); err != nil {
		t.Fatal(err)
	}
	got, _ = s.User.Search(ctx, "bob", 0)
	if len(got) != 0 {
		t.Fatalf("expected deleted accounts to be hidden, got %+v", got)
	}

	got, _ = s.User.Search(ctx, "%", 0)
	if len(got) != 0 {
		t.Fatalf("expected wildcards to be matched literally, got %+v", got)
	}

	_, err = s.User.Search(ctx, "  ", 0)
	expectCode(t, err, errs.EINVALID)
}
