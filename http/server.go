package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"mySocialApp/auth"
	"mySocialApp/crud"
	"mySocialApp/domain"
	"mySocialApp/errs"
	"mySocialApp/logging"
)

// ShutdownTimeout is how long Run waits for in-flight requests once asked to stop.
const ShutdownTimeout = 10 * time.Second

// Config holds the http settings of the server.
type Config struct {
	IsProd bool
	// AllowedOrigins are the browser origins allowed to call the api with credentials.
	AllowedOrigins []string
	// RateLimit throttles sign up and sign in per client ip.
	RateLimit RateLimitConfig
}

// Server provides the http functionality of this app, namely routing, request
// handling and middleware. It authenticates requests before handing things
// over to one of the crud services.
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  zerolog.Logger
	isProd  bool

	us     domain.UserService
	rs     domain.RelationshipService
	ps     domain.PostService
	tokens *auth.Provider

	authLimiter RateLimiter
	proxies     logging.TrustedProxies
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the services passed in.
func NewServer(cfg Config, services *crud.Services, tokens *auth.Provider, logger zerolog.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		isProd:      cfg.IsProd,
		us:          services.User,
		rs:          services.Relationship,
		ps:          services.Post,
		tokens:      tokens,
		authLimiter: NewIPRateLimiter(cfg.RateLimit),
	}
	proxies, err := logging.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring trusted proxies, forwarding headers will not be read")
	}
	s.proxies = proxies

	// Middleware that runs on every request, outermost first.
	s.router.Use(logging.HTTPMiddleware(logger, s.proxies), recoverPanic, setContentTypeJSON, s.checkUser)
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.registerAuthRoutes(s.router)
	s.registerUserRoutes(s.router)
	s.registerRelationshipRoutes(s.router)
	s.registerPostRoutes(s.router)
	s.registerLikeRoutes(s.router)
	s.registerCommentRoutes(s.router)

	s.handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(s.router)
	return s
}

// ServeHTTP makes the server usable as an http.Handler, CORS included.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens and serves on the given port until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", port).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// recoverPanic turns a panicking handler into a 500 response instead of a dropped connection.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				errs.ReturnError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth handles the route "GET /health".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, payload{"status": "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "Route not found."))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	encode(w, r, errs.ErrorResponse{Result: false, Error: "Method not allowed."})
}
