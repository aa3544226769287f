package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arawak/singora/internal/config"
	"github.com/arawak/singora/internal/export"
	"github.com/arawak/singora/internal/media"
	"github.com/arawak/singora/internal/staging"
	"github.com/arawak/singora/internal/store"
	"github.com/arawak/singora/internal/swaggerui"
)

const (
	APIPrefix      = "/api/v1"
	ExportIDHeader = "X-Export-Id"
)

//go:embed openapi.yaml
var openapiSpec []byte

// ImageStore is the part of the image store served directly over HTTP.
type ImageStore interface {
	Ping(ctx context.Context) error
	CreateImage(ctx context.Context, in store.ImageCreate) (*store.Image, error)
	GetImage(ctx context.Context, id int64, withData bool) (*store.Image, error)
	DeleteImage(ctx context.Context, id int64) error
	CountImages(ctx context.Context, f store.Filter) (int, error)
	LabelStats(ctx context.Context) ([]store.LabelStat, error)
	DateCounts(ctx context.Context, limit int) ([]store.DateCount, error)
}

type Server struct {
	cfg       *config.Config
	images    ImageStore
	exports   *export.Service
	staging   *staging.Manager
	validator *media.Validator
	apiKeys   *APIKeyStore
	logger    *slog.Logger
}

type Deps struct {
	Images    ImageStore
	Exports   *export.Service
	Staging   *staging.Manager
	Validator *media.Validator
	APIKeys   *APIKeyStore
	Logger    *slog.Logger
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	s := &Server{
		cfg:       cfg,
		images:    deps.Images,
		exports:   deps.Exports,
		staging:   deps.Staging,
		validator: deps.Validator,
		apiKeys:   deps.APIKeys,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(escapedPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(loggingMiddleware(logger))

	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept", cfg.APIKeyHeader},
			ExposedHeaders:   []string{"Content-Disposition", ExportIDHeader},
			AllowCredentials: !allowsAnyOrigin(cfg.CORSAllowedOrigins),
		})
		r.Use(c.Handler)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/readyz", s.GetReadyz)
	r.Get(cfg.OpenAPIPath, s.serveOpenAPI)
	r.Mount(cfg.SwaggerUIPath, swaggerui.Handler(cfg.OpenAPIPath, cfg.SwaggerUIPath))

	wrapper := ServerInterfaceWrapper{Handler: s, ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	}}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.authMiddleware())

		r.With(s.requirePermissions(PermCanUpload)).Post("/images", wrapper.UploadImage)
		r.With(s.requirePermissions(PermCanRead)).Get("/images/{id}", wrapper.GetImage)
		r.With(s.requirePermissions(PermCanRead)).Get("/images/{id}/raw", wrapper.GetImageRaw)
		r.With(s.requirePermissions(PermCanDelete)).Delete("/images/{id}", wrapper.DeleteImage)
		r.With(s.requirePermissions(PermCanRead)).Get("/labels", wrapper.ListLabels)
		r.With(s.requirePermissions(PermCanRead)).Get("/stats", wrapper.GetStats)

		r.Route("/images/download", func(r chi.Router) {
			r.Use(s.requirePermissions(PermCanDownload))
			r.Get("/all", wrapper.DownloadAll)
			r.Get("/info", wrapper.GetDownloadInfo)
			r.Get("/label/{label}", wrapper.DownloadByLabel)
			r.Get("/label/{label}/date/{date}", wrapper.DownloadByLabelAndDate)
			r.Get("/label/{label}/date-range", wrapper.DownloadByLabelAndDateRange)
			r.Get("/date/{date}", wrapper.DownloadByDate)
		})
	})

	return r
}

func (s *Server) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}

// GetHealth reports database connectivity.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	now := time.Now().UTC().Format(export.TimestampLayout)
	if err := s.images.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, Health{Status: Unhealthy, Timestamp: now, Database: "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, Health{Status: Healthy, Timestamp: now, Database: "connected"})
}

// GetReadyz additionally requires that exports can be staged.
func (s *Server) GetReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	now := time.Now().UTC().Format(export.TimestampLayout)
	if err := s.images.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable", map[string]any{"error": err.Error()})
		return
	}
	if err := s.staging.IsWritable(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "staging directory not writable", map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, Health{Status: Healthy, Timestamp: now, Database: "connected", Staging: "writable"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	body := Error{Code: code, Message: message}
	if len(details) > 0 {
		body.Details = &details
	}
	writeJSON(w, status, body)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start).String(),
			)
		})
	}
}

// escapedPath makes chi route on the escaped path so path parameters are
// unescaped once, by the parameter binder.
func escapedPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.RawPath = r.URL.EscapedPath()
		next.ServeHTTP(w, r)
	})
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
