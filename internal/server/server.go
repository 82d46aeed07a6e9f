// Package server exposes the guard over a local JSON API and a websocket
// stream of live events.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/guard"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/sensor"
)

// Controller is the guard surface the API drives.
type Controller interface {
	Status() guard.Status
	Activate()
	Deactivate()
	Toggle() bool
	TestAlert() error
	Cancel() error
	SendNow(ctx context.Context) (*alert.Report, error)
	ApplyProfile(p *model.Profile)
	HandleSample(s sensor.Sample)
	Subscribe(fn func(guard.Event)) func()
}

// ProfileStore persists contacts and settings.
type ProfileStore interface {
	Get() (*model.Profile, error)
	AddContact(name, phone string) (model.Contact, error)
	DeleteContact(id int64) error
	UpdateSettings(u model.SettingsUpdate) (*model.Profile, error)
}

// IncidentLister reads the incident history.
type IncidentLister interface {
	List() ([]*model.Incident, error)
	ListSince(since time.Time) ([]*model.Incident, error)
}

// Options wires a Server.
type Options struct {
	Config    config.ServerConfig
	Guard     Controller
	Profiles  ProfileStore
	Incidents IncidentLister
	// Motion receives samples posted to /api/motion. When nil they go
	// straight to the guard.
	Motion   *sensor.ChanSource
	Notifier notify.Notifier
}

// Server is the HTTP API.
type Server struct {
	cfg        config.ServerConfig
	guard      Controller
	profiles   ProfileStore
	incidents  IncidentLister
	motion     *sensor.ChanSource
	notifier   notify.Notifier
	hub        *Hub
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. Call Close to release the event hub.
func New(opts Options) *Server {
	s := &Server{
		cfg:       opts.Config,
		guard:     opts.Guard,
		profiles:  opts.Profiles,
		incidents: opts.Incidents,
		motion:    opts.Motion,
		notifier:  opts.Notifier,
	}
	if s.notifier == nil {
		s.notifier = notify.NotifierFunc(func(title, body string) {
			logging.Info(title, "body", body)
		})
	}
	s.hub = NewHub(opts.Guard)
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", s.hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/status", s.handleStatus)

		r.Get("/contacts", s.handleListContacts)
		r.Post("/contacts", s.handleAddContact)
		r.Delete("/contacts/{id}", s.handleDeleteContact)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Post("/activate", s.handleActivate)
		r.Post("/deactivate", s.handleDeactivate)
		r.Post("/toggle", s.handleToggle)
		r.Post("/test", s.handleTest)
		r.Post("/cancel", s.handleCancel)
		r.Post("/send", s.handleSend)

		r.Get("/incidents", s.handleIncidents)
		r.Post("/motion", s.handleMotion)
	})

	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	logging.Info("api listening", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.httpServer.Shutdown(ctx)
}

// Close detaches the event hub from the guard.
func (s *Server) Close() {
	s.hub.Close()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.DebugLog("http request",
			logging.KeyRequestID, middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			logging.KeyStatus, ww.Status(),
			logging.KeyDuration, time.Since(start).Milliseconds())
	})
}
