package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/vacation-distri/internal/async"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
)

const (
	serviceName    = "Document Processing API"
	serviceVersion = "1.0.0"
)

type StatusProvider interface {
	ServiceStatus(ctx context.Context) pipeline.ServiceStatus
	ResetStats()
}

type Exporter interface {
	AbsenceWorkbook(restructured map[string]any) ([]byte, error)
}

// APIConfig carries the collaborators of the HTTP API.
type APIConfig struct {
	Status         StatusProvider
	Tasks          repository.TaskRepository
	Queue          async.Queue
	Exporter       Exporter
	UploadDir      string // temp uploads are created below it; "" uses os.TempDir
	MaxUploadBytes int64  // default 50 MiB
	Logger         *slog.Logger
}

type API struct {
	cfg    APIConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewAPI(cfg APIConfig) *API {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &API{cfg: cfg, logger: cfg.Logger, now: time.Now}
}

// Routes builds the chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)
	r.Get("/status", a.handleStatus)
	r.Post("/upload", a.handleUpload)
	r.Get("/tasks", a.handleListTasks)
	r.Route("/task/{id}", func(r chi.Router) {
		r.Get("/status", a.handleTaskStatus)
		r.Get("/result", a.handleTaskResult)
		r.Get("/summary", a.handleTaskSummary)
		r.Get("/export.xlsx", a.handleTaskExport)
		r.Delete("/", a.handleDeleteTask)
	})
	r.Post("/reset-stats", a.handleResetStats)
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		r = r.WithContext(common.WithRequestID(r.Context(), reqID))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.Info("http.request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps sentinel errors to status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, async.ErrQueueClosed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("http.request.failed", "req_id", common.RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
