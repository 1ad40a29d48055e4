package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sparkcards/spark/internal/collections"
	"github.com/sparkcards/spark/internal/ops"
	"github.com/sparkcards/spark/internal/prompt"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the shared components the web UI renders.
type Deps struct {
	Catalog *prompt.Catalog
	Store   *collections.Store
	View    *ops.View
	Logger  *zap.Logger
}

// NewServer creates and configures the HTTP server for the Spark web UI.
func NewServer(deps Deps, version, bind string, port int) (*http.Server, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handlers{
		cat:      deps.Catalog,
		store:    deps.Store,
		view:     deps.View,
		logger:   logger,
		renderer: NewRenderer(templateSub, version, logger),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/shuffle", http.StatusFound)
	})
	mux.HandleFunc("GET /shuffle", h.HandleShuffle)
	mux.HandleFunc("POST /shuffle/next", h.HandleAdvance)
	mux.HandleFunc("POST /shuffle/reset", h.HandleReset)
	mux.HandleFunc("POST /shuffle/filter", h.HandleToggleFilter)
	mux.HandleFunc("DELETE /shuffle/filter", h.HandleClearFilters)
	mux.HandleFunc("GET /prompts", h.HandlePrompts)
	mux.HandleFunc("GET /favorites", h.HandleFavorites)
	mux.HandleFunc("POST /favorites", h.HandleToggleFavorite)
	mux.HandleFunc("GET /hidden", h.HandleHidden)
	mux.HandleFunc("POST /hidden", h.HandleToggleHidden)
	mux.HandleFunc("GET /lists", h.HandleLists)
	mux.HandleFunc("POST /lists", h.HandleCreateList)
	mux.HandleFunc("GET /lists/{name}", h.HandleShowList)
	mux.HandleFunc("DELETE /lists/{name}", h.HandleDeleteList)
	mux.HandleFunc("POST /lists/{name}/items", h.HandleAddToList)
	mux.HandleFunc("DELETE /lists/{name}/items", h.HandleRemoveFromList)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Wrap with method override and security headers
	handler := securityHeaders(methodOverride(mux))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: handler,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// methodOverride lets plain HTML forms issue DELETE via a "_method" field.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if m := r.FormValue("_method"); strings.EqualFold(m, http.MethodDelete) {
				r.Method = http.MethodDelete
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, srv, logger)
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("spark UI running", zap.String("url", "http://"+srv.Addr))
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
