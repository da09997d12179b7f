package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/logging"
)

func (s *Server) registerRelationshipRoutes(r *mux.Router) {
	// Follow or unfollow a user.
	r.HandleFunc("/users/{id}/follow", s.requireAuth(s.handleToggleFollow)).Methods("POST")

	// Ask a user to become friends.
	r.HandleFunc("/users/{id}/friend-request", s.requireAuth(s.handleSendFriendRequest)).Methods("POST")

	// Accept or reject the friend request a user sent to the authed user.
	r.HandleFunc("/users/{id}/friend-request/{action}", s.requireAuth(s.handleResolveFriendRequest)).Methods("POST")

	// End a friendship.
	r.HandleFunc("/users/{id}/unfriend", s.requireAuth(s.handleUnfriend)).Methods("DELETE")
}

// handleToggleFollow handles the route "POST /users/{id}/follow".
// The authed user follows the user if they didn't yet, and unfollows them otherwise.
func (s *Server) handleToggleFollow(w http.ResponseWriter, r *http.Request) {
	actor, target := s.authedUser(r).PublicID, mux.Vars(r)["id"]

	following, err := s.rs.ToggleFollow(r.Context(), actor, target)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if following {
		logging.Audit(r.Context(), logging.ActionFollow, actor, target, "followed")
		respond(w, r, http.StatusOK, payload{"message": "Followed successfully", "following": true})
		return
	}
	logging.Audit(r.Context(), logging.ActionUnfollow, actor, target, "unfollowed")
	respond(w, r, http.StatusOK, payload{"message": "Unfollowed successfully", "following": false})
}

// handleSendFriendRequest handles the route "POST /users/{id}/friend-request".
func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	actor, target := s.authedUser(r).PublicID, mux.Vars(r)["id"]

	if err := s.rs.SendFriendRequest(r.Context(), actor, target); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionFriendRequest, actor, target, "friend request sent")
	message(w, r, "Friend request sent successfully.")
}

// handleResolveFriendRequest handles the route "POST /users/{id}/friend-request/{action}".
// {id} is the user who sent the request, {action} is either accept or reject.
func (s *Server) handleResolveFriendRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	action, err := domain.ParseRequestAction(vars["action"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	actor, requester := s.authedUser(r).PublicID, vars["id"]

	if err := s.rs.ResolveFriendRequest(r.Context(), actor, requester, action); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if action == domain.RequestAccept {
		logging.Audit(r.Context(), logging.ActionFriendAccept, actor, requester, "friend request accepted")
		message(w, r, "Friend request accepted.")
		return
	}
	logging.Audit(r.Context(), logging.ActionFriendReject, actor, requester, "friend request rejected")
	message(w, r, "Friend request rejected.")
}

// handleUnfriend handles the route "DELETE /users/{id}/unfriend".
func (s *Server) handleUnfriend(w http.ResponseWriter, r *http.Request) {
	actor, target := s.authedUser(r).PublicID, mux.Vars(r)["id"]

	if err := s.rs.Unfriend(r.Context(), actor, target); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionUnfriend, actor, target, "unfriended")
	message(w, r, "Friend removed successfully.")
}
