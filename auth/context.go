package auth

import (
	"context"

	"mySocialApp/domain"
)

const (
	identityKey privateKey = "identity"
	userKey     privateKey = "user"
)

type privateKey string

// SetIdentity stores the verified identity of the caller in ctx.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the caller's identity, or nil for anonymous requests.
func GetIdentity(ctx context.Context) *Identity {
	if temp := ctx.Value(identityKey); temp != nil {
		if id, ok := temp.(*Identity); ok {
			return id
		}
	}
	return nil
}

// SetUser stores the account record of the caller in ctx.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the caller's account, or nil for anonymous requests.
func GetUser(ctx context.Context) *domain.User {
	if temp := ctx.Value(userKey); temp != nil {
		if user, ok := temp.(*domain.User); ok {
			return user
		}
	}
	return nil
}
