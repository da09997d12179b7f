package crud

import (
	"gorm.io/gorm"

	"mySocialApp/lock"
)

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. It wraps the constructor of a crud service,
// so the services can be assembled with functional options in main.go.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the database connection and the pair locker
// provided by Services.
type Services struct {
	db           *gorm.DB
	locker       lock.Locker
	User         *UserService
	Relationship *RelationshipService
	Post         *PostService
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
// Unless WithLocker comes first, services serialise on an in-process lock.
func NewServices(db *gorm.DB, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		db:     db,
		locker: lock.NewMemory(),
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithLocker replaces the in-process lock, e.g. with a redis backed one
// when several instances share the database.
func WithLocker(l lock.Locker) ServicesConfig {
	return func(s *Services) error {
		s.locker = l
		return nil
	}
}

// WithUser wraps the constructor of UserService, NewUserService.
func WithUser(pepper string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db, pepper)
		return nil
	}
}

// WithRelationship wraps the constructor of RelationshipService, NewRelationshipService.
func WithRelationship() ServicesConfig {
	return func(s *Services) error {
		s.Relationship = NewRelationshipService(s.db, s.locker)
		return nil
	}
}

// WithPost wraps the constructor of PostService, NewPostService.
// Friendship checks go through the RelationshipService, which is created
// here if WithRelationship was not passed before.
func WithPost() ServicesConfig {
	return func(s *Services) error {
		friends := s.Relationship
		if friends == nil {
			friends = NewRelationshipService(s.db, s.locker)
		}
		s.Post = NewPostService(s.db, s.locker, friends)
		return nil
	}
}
