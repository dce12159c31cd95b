// Package server serves the campaign analysis dashboard over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/campaignlens/campaignlens/internal/cache"
	"github.com/campaignlens/campaignlens/internal/config"
	"github.com/campaignlens/campaignlens/internal/dataset"
	"github.com/campaignlens/campaignlens/internal/distribution"
	"github.com/campaignlens/campaignlens/internal/filter"
	"github.com/campaignlens/campaignlens/internal/session"
	"github.com/campaignlens/campaignlens/internal/store"
)

const sessionCookie = "campaignlens_session"

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Server wires the dashboard handlers to sessions, the activity log, and the
// chart renderer.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	events   store.Store
	renderer *distribution.Renderer
	uploads  *rate.Limiter
	loads    *cache.Memo[*dataset.Dataset]
	exports  *cache.Memo[[]byte]
	router   *chi.Mux
}

// New builds a Server and its routes.
func New(cfg *config.Config, sessions *session.Manager, events store.Store) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		events:   events,
		renderer: distribution.NewRenderer(distribution.DefaultTheme(cfg.Chart.Width, cfg.Chart.Height)),
		uploads:  rate.NewLimiter(rate.Limit(cfg.Server.UploadRatePerS), cfg.Server.UploadBurst),
		loads:    cache.New[*dataset.Dataset](cfg.Cache.MaxEntries),
		exports:  cache.New[[]byte](cfg.Cache.MaxEntries),
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Post("/filter", s.handleFilter)
	r.Get("/preview", s.handlePreview)
	r.Get("/download", s.handleDownload)
	r.Get("/charts/bar.png", s.handleBarChart)
	r.Get("/charts/pie.png", s.handlePieChart)
	r.Get("/activity", s.handleActivity)
	s.router = r

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// session resolves the visitor's session from the cookie, creating one (and
// setting the cookie) when absent or expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess := s.sessions.GetOrNew(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (s *Server) filterColumns() filter.Columns {
	return filter.Columns{
		Age:     s.cfg.Data.AgeColumn,
		Job:     s.cfg.Data.JobColumn,
		Marital: s.cfg.Data.MaritalColumn,
	}
}
