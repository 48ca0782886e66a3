package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"narration-timeline-service/internal/api"
	"narration-timeline-service/internal/app"
	"narration-timeline-service/internal/observability"
	"narration-timeline-service/internal/observability/metrics"
)

const maxBodyBytes = 8 << 20

// errorBody is the JSON body of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	svc := api.NewService(application)
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !svc.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/audio/split", handle(svc.SplitAudio))
		r.Post("/transcripts/align", handle(svc.AlignTranscript))
		r.Post("/slides/split", handle(svc.SplitSlides))
		r.Post("/timeline/plan", handle(svc.PlanTimeline))
	})

	return r
}

// handle decodes a JSON request into Req, calls fn and writes its response
// or a mapped error.
func handle[Req, Resp any](fn func(context.Context, Req) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: decode body: %v", api.ErrBadRequest, err))
			return
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// StatusCode maps an error kind to an HTTP status.
func StatusCode(err error) int {
	switch api.Kind(err) {
	case "bad_request", "configuration", "unsupported_format":
		return http.StatusBadRequest
	case "input_not_found":
		return http.StatusNotFound
	case "alignment_mismatch":
		return http.StatusUnprocessableEntity
	case "slide_limit_exceeded":
		return http.StatusConflict
	case "deadline_exceeded":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	kind := api.Kind(err)
	evt := log.Warn()
	if code >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).
		Str("route", r.URL.Path).
		Str("errorKind", kind).
		Str("requestId", middleware.GetReqID(r.Context())).
		Msg("Request failed")
	writeJSON(w, code, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response body")
	}
}
