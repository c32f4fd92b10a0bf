// Package server provides the HTTP server and handlers.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/auth"
	"github.com/goldlanka/goldmarket/internal/blob"
	"github.com/goldlanka/goldmarket/internal/database"
	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures a Server.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	PageSize       int
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Server is the main HTTP server.
type Server struct {
	db        database.Store
	blobs     *blob.Store
	opts      Options
	logger    *zap.Logger
	router    chi.Router
	templates *template.Template
	http      *http.Server
}

// New creates a new server.
func New(db database.Store, blobs *blob.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = feed.DefaultPageSize
	}
	opts.PageSize = min(opts.PageSize, database.MaxPageSize)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo":  timeAgo,
		"district": model.DisplayDistrict,
		"rupees":   rupees,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		blobs:     blobs,
		opts:      opts,
		logger:    opts.Logger,
		templates: tmpl,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(auth.Middleware(s.logger))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Get("/blobs/*", s.handleBlob)

	// Pages.
	r.Get("/", s.handleHome)
	r.Get("/shops", s.handleShopsPage)
	r.Get("/forum", s.handleForumPage)
	r.Get("/item/{slug}", s.handleItemPage)
	r.Get("/shop/{slug}", s.handleShopPage)
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/feed.rss", s.handleRSS)
	r.Get("/healthz", s.handleHealth)

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Get("/all", s.handleAllItems)
			r.Get("/tally", s.handleItemTally)
			r.With(auth.Require).Post("/", s.handleCreateItem)
			r.Get("/{id}", s.handleGetItem)
			r.With(auth.Require).Put("/{id}", s.handleUpdateItem)
			r.With(auth.Require).Delete("/{id}", s.handleDeleteItem)
			r.With(auth.Require).Post("/{id}/sold", s.handleMarkSold)
			r.With(auth.Require).Post("/{id}/bids", s.handlePlaceBid)
		})
		r.Route("/shops", func(r chi.Router) {
			r.Get("/", s.handleListShops)
			r.Get("/all", s.handleAllShops)
			r.Get("/tally", s.handleShopTally)
			r.Get("/ratings", s.handleShopRatings)
			r.With(auth.Require).Put("/mine", s.handleSaveShop)
			r.With(auth.Require).Delete("/mine", s.handleDeleteShop)
			r.Get("/{id}", s.handleGetShop)
			r.With(auth.Require).Post("/{id}/reviews", s.handleSaveReview)
			r.With(auth.Require).Post("/{id}/reviews/{rid}/reply", s.handleReplyToReview)
		})
		r.Route("/forum", func(r chi.Router) {
			r.Get("/", s.handleListForum)
			r.Post("/", s.handleCreatePost)
			r.Get("/{id}/replies", s.handleListReplies)
			r.Post("/{id}/replies", s.handleCreateReply)
		})
		r.Route("/users/me", func(r chi.Router) {
			r.Use(auth.Require)
			r.Get("/", s.handleGetMe)
			r.Put("/", s.handleSaveMe)
			r.Delete("/", s.handleDeleteMe)
			r.Get("/items", s.handleMyItems)
		})
		r.With(auth.Require).Post("/uploads", s.handleUpload)
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", zap.String("addr", addr), zap.String("database", s.db.DatabaseType()))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// --- Helpers ---

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

// renderStatus executes into a buffer first so a template failure can
// still produce a clean 500.
func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func rupees(v float64) string {
	return fmt.Sprintf("Rs. %.0f", v)
}
