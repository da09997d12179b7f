package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/logging"
)

func (s *Server) registerPostRoutes(r *mux.Router) {
	// The feed: every post the authed user may read, newest first.
	r.HandleFunc("/posts", s.requireAuth(s.handleFeed)).Methods("GET")

	// Publish a post.
	r.HandleFunc("/posts", s.requireAuth(s.handleCreatePost)).Methods("POST")

	r.HandleFunc("/posts/{id:[0-9]+}", s.requireAuth(s.handleGetPost)).Methods("GET")
	r.HandleFunc("/posts/{id:[0-9]+}", s.requireAuth(s.handleDeletePost)).Methods("DELETE")
}

// createPostRequest is the body of "POST /posts". An empty visibility scope
// falls back to the privacy setting of the author.
type createPostRequest struct {
	Content    string            `json:"content"`
	Visibility domain.Visibility `json:"visibility"`
	Tags       []string          `json:"tags"`
	Media      []string          `json:"media"`
}

// pageParams reads the offset and limit query parameters. Missing values are zero.
func pageParams(r *http.Request) (domain.Page, error) {
	var page domain.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"offset": &page.Offset, "limit": &page.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.Page{}, errs.Errorf(errs.EINVALID, "Invalid %s parameter.", name)
		}
		*dst = n
	}
	return page, nil
}

// handleFeed handles the route "GET /posts?offset=&limit=".
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	page, err := pageParams(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	viewer := s.authedUser(r)
	posts, err := s.ps.Feed(r.Context(), viewer.ID, page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"posts": postsResponse(viewer, posts)})
}

// handleCreatePost handles the route "POST /posts".
// The author is always the authed user, whatever the body says.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(r, &req); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	author := s.authedUser(r)
	post := &domain.Post{
		AuthorID: author.ID,
		Content:  req.Content,
		Tags:     req.Tags,
		Media:    req.Media,
		Visibility: domain.Visibility{
			Scope:  req.Visibility.Scope,
			Target: req.Visibility.Target,
		},
	}
	if err := s.ps.Create(r.Context(), post); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionPostCreate, author.PublicID, post.Visibility.Target,
		"post "+strconv.Itoa(post.ID)+" created as "+string(post.Visibility.Scope))
	respond(w, r, http.StatusCreated, payload{"post": postResponse(author, post)})
}

// handleGetPost handles the route "GET /posts/{id}".
// Posts the authed user may not read are reported as missing.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	viewer := s.authedUser(r)
	post, err := s.ps.ByID(r.Context(), viewer.ID, id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, payload{"post": postResponse(viewer, post)})
}

// handleDeletePost handles the route "DELETE /posts/{id}".
// Only the author can delete a post. Its likes and comments go with it.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user := s.authedUser(r)
	if err := s.ps.Delete(r.Context(), user.ID, id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	logging.Audit(r.Context(), logging.ActionPostDelete, user.PublicID, "", "post "+strconv.Itoa(id)+" deleted")
	message(w, r, "Post deleted successfully.")
}
