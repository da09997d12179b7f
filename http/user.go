package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mySocialApp/auth"
	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/logging"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	// Routes about the authed user. They must be registered before "/users/{id}".
	r.HandleFunc("/users/search", s.requireAuth(s.handleSearchUsers)).Methods("GET")
	r.HandleFunc("/users/friends", s.requireAuth(s.handleListFriends)).Methods("GET")
	r.HandleFunc("/users/following", s.requireAuth(s.handleListFollowing)).Methods("GET")
	r.HandleFunc("/users/followers", s.requireAuth(s.handleListFollowers)).Methods("GET")
	r.HandleFunc("/users/friend-requests", s.requireAuth(s.handleListFriendRequests)).Methods("GET")
	r.HandleFunc("/users/profile", s.requireAuth(s.handleUpdateProfile)).Methods("PUT")
	r.HandleFunc("/users/profile/image", s.requireAuth(s.handleUpdateImage)).Methods("PUT")
	r.HandleFunc("/users/settings", s.requireAuth(s.handleUpdateSettings)).Methods("PUT")
	r.HandleFunc("/users/account", s.requireAuth(s.handleDeleteAccount)).Methods("DELETE")

	// Routes about any user, identified by public id.
	r.HandleFunc("/users/{id}", s.requireAuth(s.handleGetProfile)).Methods("GET")
	r.HandleFunc("/users/{id}/posts", s.requireAuth(s.handleUserPosts)).Methods("GET")
}

// handleSearchUsers handles the route "GET /users/search?query=".
// It returns up to ten accounts whose first or last name contains the query.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Query parameter is required."))
		return
	}
	users, err := s.us.Search(r.Context(), query, 0)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"users": summariesResponse(users)})
}

// handleListFriends handles the route "GET /users/friends".
func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.rs.Friends(r.Context(), s.authedUser(r).ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"friends": summariesResponse(friends)})
}

// handleListFollowing handles the route "GET /users/following".
func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	following, err := s.rs.Following(r.Context(), s.authedUser(r).ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"following": summariesResponse(following)})
}

// handleListFollowers handles the route "GET /users/followers".
func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	followers, err := s.rs.Followers(r.Context(), s.authedUser(r).ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"followers": summariesResponse(followers)})
}

// handleListFriendRequests handles the route "GET /users/friend-requests".
// It lists the accounts waiting for the authed user to answer their request.
func (s *Server) handleListFriendRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.rs.FriendRequests(r.Context(), s.authedUser(r).ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"friendRequests": summariesResponse(requests)})
}

// handleUpdateProfile handles the route "PUT /users/profile".
// Fields missing from the body are left as they are.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProfileUpdate
	if err := decode(r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	authed := s.authedUser(r)
	user, err := s.us.UpdateProfile(r.Context(), authed.PublicID, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionUpdateProfile, authed.PublicID, "", "profile updated")
	respond(w, r, http.StatusOK, payload{"message": "Profile updated successfully.", "profile": user.Profile})
}

// updateImageRequest is the body of "PUT /users/profile/image". The image
// itself lives elsewhere; only its url is stored.
type updateImageRequest struct {
	Field domain.ImageField `json:"field"`
	URL   string            `json:"url"`
}

// handleUpdateImage handles the route "PUT /users/profile/image".
func (s *Server) handleUpdateImage(w http.ResponseWriter, r *http.Request) {
	var req updateImageRequest
	if err := decode(r, &req); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "No image url provided."))
		return
	}
	authed := s.authedUser(r)
	previous, err := s.us.UpdateImage(r.Context(), authed.PublicID, req.Field, strings.TrimSpace(req.URL))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionUpdateProfile, authed.PublicID, "", "image updated: "+string(req.Field))
	respond(w, r, http.StatusOK, payload{
		"message":     "Picture successfully updated.",
		"imageUrl":    strings.TrimSpace(req.URL),
		"previousUrl": previous,
	})
}

// handleUpdateSettings handles the route "PUT /users/settings".
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd domain.SettingsUpdate
	if err := decode(r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	authed := s.authedUser(r)
	user, err := s.us.UpdateSettings(r.Context(), authed.PublicID, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionUpdateProfile, authed.PublicID, "", "settings updated")
	respond(w, r, http.StatusOK, payload{"message": "Settings updated successfully.", "settings": user.Settings})
}

// handleDeleteAccount handles the route "DELETE /users/account".
// The account is marked as deleted and signed out. Its records stay in place.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	authed := s.authedUser(r)
	if err := s.us.SetStatus(r.Context(), authed.PublicID, domain.StatusDeleted); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.clearSession(w)
	logging.Audit(r.Context(), logging.ActionDeactivate, authed.PublicID, "", "account deleted")
	message(w, r, "Account deleted.")
}

// visibleUser loads the account named by the {id} route variable. Accounts
// that are not active are only visible to their owner.
func (s *Server) visibleUser(r *http.Request) (*domain.User, error) {
	user, err := s.us.ByPublicID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if !user.Active() && !auth.GetIdentity(r.Context()).Is(user.PublicID) {
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
	return user, nil
}

// handleGetProfile handles the route "GET /users/{id}".
// It returns the profile of the user along with their friends and how the
// authed user relates to them.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.visibleUser(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	friends, err := s.rs.Friends(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	social, err := s.us.Social(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"user": profileResponse(s.authedUser(r), user, friends, social)})
}

// handleUserPosts handles the route "GET /users/{id}/posts?offset=&limit=".
// Only the posts the authed user may read are returned.
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	user, err := s.visibleUser(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	page, err := pageParams(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	viewer := s.authedUser(r)
	posts, err := s.ps.ByAuthor(r.Context(), viewer.ID, user.ID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"posts": postsResponse(viewer, posts)})
}
