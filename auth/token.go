package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mySocialApp/domain"
	"mySocialApp/errs"
)

// DefaultTTL is how long an issued session token stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// Identity is what a verified token tells about its bearer.
type Identity struct {
	PublicID string
	Email    string
}

// Is reports whether the identity acts as the account with the given public id.
func (i *Identity) Is(publicID string) bool {
	return i != nil && i.PublicID == publicID
}

// claims is the payload of a session token.
type claims struct {
	jwt.RegisteredClaims
	PublicID string `json:"publicId"`
	Email    string `json:"email"`
}

// Provider issues and verifies HMAC signed session tokens. The secret is
// handed in at construction and never read from global state.
type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewProvider returns a Provider signing with secret. A ttl <= 0 means DefaultTTL.
func NewProvider(secret string, ttl time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the validity window of issued tokens.
func (p *Provider) TTL() time.Duration {
	return p.ttl
}

// Issue signs a token binding the user's public id and email.
func (p *Provider) Issue(user *domain.User) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.PublicID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		PublicID: user.PublicID,
		Email:    user.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Verify checks the signature and expiry of a token and returns its identity.
// Every failure is reported as EUNAUTHORIZED.
func (p *Provider) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "Not authenticated. Please sign in.")
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.Errorf(errs.EUNAUTHORIZED, "Session expired. Please sign in again.")
		}
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid token.")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.PublicID == "" {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid token.")
	}
	return &Identity{PublicID: c.PublicID, Email: c.Email}, nil
}
