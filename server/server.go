package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/flowforge/flowforge/agent"
	"github.com/flowforge/flowforge/builder"
	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/scheduler"
	"github.com/flowforge/flowforge/tool"
	"github.com/flowforge/flowforge/workflow"
)

const keepaliveInterval = time.Second

// Config configures a Server: where workflow YAML files live and which
// tools are available to any workflow it builds.
type Config struct {
	WorkflowDir string
	Tools       *tool.Registry
	Logger      *slog.Logger
}

// Server is the HTTP/SSE surface over the workflow engine: a directory of
// workflow YAML files, compiled on demand and run synchronously or
// streamed, plus a Prometheus /metrics endpoint.
type Server struct {
	dir      string
	tools    *tool.Registry
	logger   *slog.Logger
	metrics  *metrics
	registry *prometheus.Registry
	router   chi.Router
}

// New builds a Server and registers its routes.
func New(cfg Config) *Server {
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		dir:      cfg.WorkflowDir,
		tools:    cfg.Tools,
		logger:   cfg.Logger,
		metrics:  newMetrics(registry),
		registry: registry,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP satisfies http.Handler, so a Server can be passed straight to
// http.Server or httptest.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Get("/workflows", s.handleList)
	r.Post("/workflows/{name}/run", s.handleRun)
	r.Post("/workflows/{name}/stream", s.handleStream)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// workflowSummary is one entry of the GET /workflows listing.
type workflowSummary struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	File        string `json:"file"`
}

// handleList enumerates the workflow YAML files in the configured
// directory, per SUPPLEMENTED FEATURES' YAML listing endpoint.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("read workflow directory: %w", err))
		return
	}

	summaries := make([]workflowSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isYAMLFile(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("server: skipping unreadable workflow file", "file", path, "err", err)
			continue
		}
		var def workflow.Definition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			s.logger.Warn("server: skipping invalid workflow file", "file", path, "err", err)
			continue
		}
		summaries = append(summaries, workflowSummary{
			Name:        def.Name,
			Kind:        string(def.Kind),
			Description: def.Description,
			File:        e.Name(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	writeJSON(w, http.StatusOK, summaries)
}

type runRequest struct {
	Input string `json:"input"`
}

type runResponse struct {
	Output string `json:"output"`
}

// handleRun builds and executes the named workflow synchronously.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	compiled, err := s.buildWorkflow(r.Context(), name)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	out, err := scheduler.Run(r.Context(), req.Input, compiled)
	s.recordNodeOutcomes(name, compiled, err)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Output: out})
}

// handleStream builds and executes the named workflow, relaying each
// agent.Event as an SSE frame, plus a 1s keepalive comment while idle,
// grounded on the teacher's restStreamWrapper framing
// (`event: <kind>\ndata: <json>\n\n`, Flush per frame).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	compiled, err := s.buildWorkflow(r.Context(), name)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported by the underlying transport"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	runID := uuid.NewString()
	sink := agent.NewSink(100)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer sink.Close()
		_, runErr = scheduler.RunStreaming(ctx, req.Input, compiled, sink)
	}()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-sink.Events():
			if !ok {
				s.recordNodeOutcomes(name, compiled, runErr)
				if runErr != nil {
					writeSSE(w, flusher, "error", map[string]string{"run_id": runID, "message": runErr.Error()})
				}
				writeSSE(w, flusher, "done", map[string]string{"run_id": runID})
				return
			}
			writeSSE(w, flusher, string(ev.Kind), sseFrame{RunID: runID, Event: ev})
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			cancel()
			<-done
			return
		}
	}
}

// sseFrame wraps an agent.Event with the run-level correlation id, per
// the DOMAIN STACK's node-run correlation requirement.
type sseFrame struct {
	RunID string      `json:"run_id"`
	Event agent.Event `json:"event"`
}

func (s *Server) buildWorkflow(ctx context.Context, name string) (*scheduler.Compiled, error) {
	path := filepath.Join(s.dir, name+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.New(ferrors.KindConfigMissing, "Server", "buildWorkflow",
			fmt.Sprintf("workflow %q not found", name), err)
	}
	return builder.Build(ctx, raw, s.tools)
}

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	var ferr *ferrors.Error
	if errors.As(err, &ferr) {
		switch ferr.Kind {
		case ferrors.KindConfigMissing:
			writeError(w, http.StatusNotFound, err)
			return
		case ferrors.KindInvalidWorkflow, ferrors.KindParseError:
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) recordNodeOutcomes(workflowName string, compiled *scheduler.Compiled, runErr error) {
	outcome := "ok"
	if runErr != nil {
		outcome = "error"
	}
	for range compiled.Nodes {
		s.metrics.nodesRun.WithLabelValues(workflowName, outcome).Inc()
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
