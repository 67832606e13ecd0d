// Package httpapi exposes the interview answering pipelines and the tracking
// store over HTTP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/specialist"
	"github.com/mockmate/mockmate/internal/storage"
	"github.com/mockmate/mockmate/internal/stream"
)

const maxBodySize = 1 << 20 // 1MB

// Deps carries the wired collaborators for the HTTP layer. Store may be nil;
// the tracking routes are mounted only when it is present.
type Deps struct {
	Interview *pipeline.Interview
	CaseStudy *pipeline.CaseStudy
	Emitter   *stream.Emitter
	Registry  *specialist.Registry
	Store     *storage.Store
	Logger    *zap.Logger

	// ModelConfigured reports whether a model backend API key was supplied,
	// surfaced by the health endpoint.
	ModelConfigured bool
}

// NewHandler builds the API router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", handleHealth(deps))
	r.Post("/api/interview", handleInterview(deps))
	r.Post("/api/analyze", handleAnalyze(deps))
	r.Get("/api/frameworks", handleFrameworks(deps))

	r.Route("/api/agents", func(r chi.Router) {
		r.Post("/answer", handleAgentAnswer(deps))
		r.Post("/answer-stream", handleAgentAnswerStream(deps))
		r.Get("/available", handleAgentsAvailable(deps))
	})

	if deps.Store != nil {
		mountTracking(r, deps)
	}

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
