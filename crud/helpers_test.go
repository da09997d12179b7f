package crud

import (
	"context"
	"strings"
	"testing"
	"time"

	"mySocialApp/database"
	"mySocialApp/domain"
	"mySocialApp/errs"
)

const testPassword = "correct horse"

// newTestServices returns services backed by a fresh in-memory sqlite database.
func newTestServices(t *testing.T) *Services {
	t.Helper()
	db := database.NewDB(database.Config{Driver: "sqlite", FilePath: "file::memory:", MaxOpenConns: 1})
	if err := database.Open(db, true); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := NewServices(db.Gorm, WithUser("pepper"), WithRelationship(), WithPost())
	if err != nil {
		t.Fatalf("new services: %v", err)
	}
	return s
}

// createUser signs up an account named after the local part of email.
func createUser(t *testing.T, s *Services, email string) *domain.User {
	t.Helper()
	name := strings.SplitN(email, "@", 2)[0]
	user := &domain.User{
		Email:    email,
		Password: testPassword,
		Profile: domain.Profile{
			Firstname: strings.ToUpper(name[:1]) + name[1:],
			Lastname:  "Tester",
			Birthdate: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	if err := s.User.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := errs.ErrorCode(err); got != code {
		t.Fatalf("expected error code %q got %q (%v)", code, got, err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func social(t *testing.T, s *Services, user *domain.User) *domain.Social {
	t.Helper()
	soc, err := s.User.Social(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("social of %s: %v", user.Email, err)
	}
	return soc
}
