// Package server exposes the engine over HTTP: SSE run streaming per
// endpoint, plus operational routes for health, config inspection and
// hot-reload. Auth and CORS policy are read from the engine's current
// snapshot, so a reload takes effect without restarting the listener.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fabriq-ai/engine"
	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	Logger logging.Logger
}

// Server handles HTTP transport for one Engine instance.
type Server struct {
	engine     *engine.Engine
	configPath string
	logger     logging.Logger
}

// New creates a Server. configPath is re-read on each POST /reload.
func New(e *engine.Engine, configPath string, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		engine:     e,
		configPath: configPath,
		logger:     opts.Logger,
	}
}

// Handler returns the route table. Run and reload require the API key when
// one is configured; health and config are open.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run/{slug}", s.authed(s.handleRun))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("POST /reload", s.authed(s.handleReload))
	return s.cors(mux)
}

// RunRequest is the incoming request body. The data map provides values for
// the endpoint's prompt template placeholders.
type RunRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	cfg := s.engine.Current().Config

	ep, ok := cfg.Endpoint(slug)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Endpoint '%s' not found", slug))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := ValidateContract(ep.Contract, req.Data); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	prompt := RenderPrompt(ep.Prompt, req.Data)

	events, err := s.engine.Run(r.Context(), ep.SystemID, prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("event marshal failed", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client gone; the run keeps draining via the ranged channel.
			s.logger.Debug("client disconnected during stream", "slug", slug)
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Health())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Current().Config)
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Reload failed: %v", err))
		return
	}

	res, err := s.engine.Reload(cfg)
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Reload failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"systems":   res.Systems,
		"endpoints": res.Endpoints,
	})
}

// authed enforces the X-API-Key header. When the current config carries no
// key, auth is disabled (dev mode).
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.engine.Current().Config.APIKey
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// cors applies the allowed_origins policy from the current config and
// answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if allowed := s.allowOrigin(origin); allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				// Browsers reject credentials combined with a wildcard origin.
				if allowed != "*" {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.engine.Current().Config.AllowedOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
