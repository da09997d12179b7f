package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"mySocialApp/errs"
)

func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/posts/{id:[0-9]+}/comments", s.requireAuth(s.handleAddComment)).Methods("POST")
	r.HandleFunc("/posts/{id:[0-9]+}/comments", s.requireAuth(s.handleListComments)).Methods("GET")
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// handleAddComment handles the route "POST /posts/{id}/comments".
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var req addCommentRequest
	if err := decode(r, &req); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	comment, err := s.ps.AddComment(r.Context(), s.authedUser(r).ID, id, req.Text)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, payload{"comment": commentResponse(comment)})
}

// handleListComments handles the route "GET /posts/{id}/comments".
// Comments come oldest first.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	comments, err := s.ps.Comments(r.Context(), s.authedUser(r).ID, id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"comments": commentsResponse(comments)})
}
