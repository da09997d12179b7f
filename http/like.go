package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mySocialApp/errs"
	"mySocialApp/logging"
)

// registerLikeRoutes is a helper for registering all Like routes.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	// Like a post, or take the like back if there is one already.
	r.HandleFunc("/posts/{id:[0-9]+}/likes", s.requireAuth(s.handleToggleLike)).Methods("POST")
	// Share a post of somebody else.
	r.HandleFunc("/posts/{id:[0-9]+}/shares", s.requireAuth(s.handleSharePost)).Methods("POST")
}

// handleToggleLike handles the route "POST /posts/{id}/likes".
// It returns whether the authed user now likes the post and the new like count.
func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	liked, count, err := s.ps.ToggleLike(r.Context(), s.authedUser(r).ID, id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	msg := "Post unliked."
	if liked {
		msg = "Post liked."
	}
	respond(w, r, http.StatusOK, payload{"message": msg, "liked": liked, "likeCount": count})
}

// handleSharePost handles the route "POST /posts/{id}/shares".
func (s *Server) handleSharePost(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := s.authedUser(r)
	count, err := s.ps.Share(r.Context(), user.ID, id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionPostShare, user.PublicID, "", "post "+strconv.Itoa(id)+" shared")
	respond(w, r, http.StatusOK, payload{"message": "Post shared.", "shareCount": count})
}
