// Package handler is the HTTP surface of the portfolio API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aTrapDeer/portfolio-api/internal/auth"
	"github.com/aTrapDeer/portfolio-api/internal/database"
	"github.com/aTrapDeer/portfolio-api/internal/logging"
	"github.com/aTrapDeer/portfolio-api/internal/metrics"
	"github.com/aTrapDeer/portfolio-api/internal/models"
	"github.com/aTrapDeer/portfolio-api/internal/revalidate"
	"github.com/aTrapDeer/portfolio-api/internal/store"
)

const pingTimeout = 2 * time.Second

// Deps are the collaborators the router wires into the handlers.
type Deps struct {
	DB  *gorm.DB
	Log *zap.Logger
	// Auth guards the write routes; nil leaves the API open.
	Auth          *auth.Authenticator
	Notifier      *revalidate.Notifier
	Metrics       *metrics.Metrics
	CORSOrigins   []string
	AdminPassword string // default for profiles created without one
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable it only behind a proxy that overwrites them, since
	// login throttling is keyed on that address.
	TrustProxyHeaders bool
}

type crud interface {
	List(http.ResponseWriter, *http.Request)
	Retrieve(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Patch(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

type middlewareFunc = func(http.Handler) http.Handler

func open(next http.Handler) http.Handler { return next }

// NewRouter builds the complete HTTP handler, CORS included.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	guard := open
	if d.Auth != nil {
		guard = d.Auth.Middleware
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.Middleware(log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	// Set before any Route call so subrouters inherit them.
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/", root)
	r.Get("/healthz", ready(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	profiles := NewProfileHandler(store.NewProfiles(d.DB), d.AdminPassword, d.Notifier, log)
	projects := NewResource[models.Project]("Project", "projects",
		store.NewRepository[models.Project](d.DB, store.Newest...), categoryFilter, d.Notifier, log)
	education := NewResource[models.Education]("Education", "education",
		store.NewRepository[models.Education](d.DB, store.Newest...), nil, d.Notifier, log)
	certifications := NewResource[models.Certification]("Certification", "certifications",
		store.NewRepository[models.Certification](d.DB, store.Newest...), nil, d.Notifier, log)
	messages := NewResource[models.Message]("Message", "messages",
		store.NewRepository[models.Message](d.DB, store.Newest...), nil, d.Notifier, log)
	stats := NewResource[models.Stats]("Stats", "stats",
		store.NewRepository[models.Stats](d.DB), nil, d.Notifier, log)

	r.Route("/api", func(r chi.Router) {
		if d.Auth != nil {
			r.Post("/auth/login", NewLoginHandler(d.Auth, log).Login)
		}

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profiles.List)
			r.With(guard).Post("/", profiles.Create)
			r.Get("/{id}", profiles.Retrieve)
			r.With(guard).Put("/{id}", profiles.Update)
			r.With(guard).Patch("/{id}", profiles.Update)
			r.With(guard).Post("/{id}/activate", profiles.Activate)
		})

		mount(r, "/projects", projects, guard, guard)
		mount(r, "/education", education, guard, guard)
		mount(r, "/certifications", certifications, guard, guard)
		// Anyone may submit the contact form.
		mount(r, "/messages", messages, open, guard)
		mount(r, "/stats", stats, guard, guard)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// mount registers the conventional verb mapping for h under pattern.
// create guards POST on the collection, write guards the item routes.
func mount(r chi.Router, pattern string, h crud, create, write middlewareFunc) {
	r.Route(pattern, func(r chi.Router) {
		r.Get("/", h.List)
		r.With(create).Post("/", h.Create)
		r.Get("/{id}", h.Retrieve)
		r.With(write).Put("/{id}", h.Update)
		r.With(write).Patch("/{id}", h.Patch)
		r.With(write).Delete("/{id}", h.Delete)
	})
}

func root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Portfolio API is running"})
}

func ready(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Not found.")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.")
}
