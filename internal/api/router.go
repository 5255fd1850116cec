// ABOUTME: HTTP JSON API over the menu cache service.
// ABOUTME: Routes menu listing, category chips, image redirects, and refresh through gorilla/mux.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/harperreed/littlelemon/internal/logging"
	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/models"
)

// MenuService is the part of menu.Service the API needs.
type MenuService interface {
	Search(ctx context.Context, f models.Filter) ([]models.MenuItem, error)
	Refresh(ctx context.Context) (*menu.RefreshResult, error)
}

// Server holds the API dependencies.
type Server struct {
	svc      MenuService
	imageURL func(string) string
	logger   *log.Logger
}

// NewServer builds a Server. imageURL resolves image file names; logger may be nil.
func NewServer(svc MenuService, imageURL func(string) string, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{svc: svc, imageURL: imageURL, logger: logger}
}

// NewRouter returns the API routes.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	r.HandleFunc("/menu", s.ListMenuHandler).Methods("GET")
	r.HandleFunc("/categories", s.CategoriesHandler).Methods("GET")
	r.HandleFunc("/images/{file}", s.ImageHandler).Methods("GET")
	r.HandleFunc("/refresh", s.RefreshHandler).Methods("POST")

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
