package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"mySocialApp/auth"
	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/logging"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup", s.rateLimit("signup", s.handleSignUp)).Methods("POST")
	r.HandleFunc("/auth/signin", s.rateLimit("signin", s.handleSignIn)).Methods("POST")
	r.HandleFunc("/auth/signout", s.requireAuth(s.handleSignOut)).Methods("POST")
}

// signUpRequest is the body of "POST /auth/signup".
type signUpRequest struct {
	Email     string `json:"emailValue"`
	Password  string `json:"passwordValue"`
	Firstname string `json:"firstnameValue"`
	Lastname  string `json:"lastnameValue"`
	Birthdate string `json:"birthdateValue"`
	Avatar    string `json:"avatarPath"`
	Gender    string `json:"genderValue"`
}

// complete reports whether every required field carries a value.
func (req *signUpRequest) complete() bool {
	for _, v := range []string{req.Email, req.Password, req.Firstname, req.Lastname, req.Birthdate} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// signInRequest is the body of "POST /auth/signin".
type signInRequest struct {
	Email    string `json:"emailValue"`
	Password string `json:"passwordValue"`
}

// birthdateLayouts are the accepted formats of a birthdate, date only first.
var birthdateLayouts = []string{"2006-01-02", time.RFC3339}

func parseBirthdate(v string) (time.Time, error) {
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.Errorf(errs.EINVALID, "Invalid birthdate. Use the format YYYY-MM-DD.")
}

// handleSignUp handles the route "POST /auth/signup".
// It creates the account, signs it in and returns it with an empty social graph.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if !req.complete() {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Please complete all fields."))
		return
	}
	birthdate, err := parseBirthdate(req.Birthdate)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := &domain.User{
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.Profile{
			Firstname: req.Firstname,
			Lastname:  req.Lastname,
			Avatar:    req.Avatar,
			Birthdate: birthdate,
			Gender:    domain.Gender(req.Gender),
		},
	}
	if err := s.us.Create(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.signIn(w, user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionSignUp, user.PublicID, "", "account created")

	respond(w, r, http.StatusCreated, payload{"user": accountResponse(user, &domain.Social{})})
}

// handleSignIn handles the route "POST /auth/signin".
// It checks the credentials, sets the session cookie and returns the account
// together with its relationship sets as public ids.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Please complete all fields."))
		return
	}

	user, err := s.us.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if code := errs.ErrorCode(err); code == errs.EUNAUTHORIZED || code == errs.EFORBIDDEN {
			logging.Audit(r.Context(), logging.ActionSignInFailed, strings.ToLower(strings.TrimSpace(req.Email)), "", errs.ErrorMessage(err))
		}
		errs.ReturnError(w, r, err)
		return
	}
	social, err := s.us.Social(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.signIn(w, user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionSignIn, user.PublicID, "", "signed in")

	respond(w, r, http.StatusOK, payload{"user": accountResponse(user, social)})
}

// handleSignOut handles the route "POST /auth/signout".
// Tokens are stateless, so signing out only clears the cookie.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	logging.Audit(r.Context(), logging.ActionSignOut, s.authedUser(r).PublicID, "", "signed out")
	message(w, r, "Successfully signed out.")
}

// signIn issues a session token for user and stores it in the session cookie.
func (s *Server) signIn(w http.ResponseWriter, user *domain.User) error {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.isProd,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.isProd,
		SameSite: http.SameSiteStrictMode,
	})
}

// bearerToken returns the session token of r. The Authorization header wins over the cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authErrKey holds the reason a presented token was refused.
type authErrKey struct{}

// The checkUser middleware verifies the session token, if any, and puts the
// identity and the account it belongs to into the request context. Requests
// without a usable token carry on anonymously; requireAuth decides what to do
// with them.
func (s *Server) checkUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		id, err := s.tokens.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authErrKey{}, err)))
			return
		}
		user, err := s.us.ByPublicID(ctx, id.PublicID)
		switch {
		case errs.ErrorCode(err) == errs.ENOTFOUND:
			err = errs.Errorf(errs.EUNAUTHORIZED, "This account no longer exists.")
		case err != nil:
		case !id.Is(user.PublicID) || id.Email != user.Email:
			// The account changed since the token was issued.
			err = errs.Errorf(errs.EUNAUTHORIZED, "Session expired. Please sign in again.")
		case user.Status == domain.StatusSuspended:
			err = errs.Errorf(errs.EFORBIDDEN, "This account is suspended.")
		}
		if err != nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authErrKey{}, err)))
			return
		}

		ctx = auth.SetIdentity(ctx, id)
		ctx = auth.SetUser(ctx, user)
		logger := logging.Ctx(ctx).With().Str(logging.FieldUserID, user.PublicID).Logger()
		ctx = logging.WithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// The requireAuth middleware refuses requests that checkUser could not
// attach an account to.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			err, ok := r.Context().Value(authErrKey{}).(error)
			if !ok {
				err = errs.Errorf(errs.EUNAUTHORIZED, "Not authenticated. Please sign in.")
			}
			errs.ReturnError(w, r, err)
			return
		}
		next(w, r)
	}
}

// authedUser returns the account of the caller. Only valid behind requireAuth.
func (s *Server) authedUser(r *http.Request) *domain.User {
	return auth.GetUser(r.Context())
}
