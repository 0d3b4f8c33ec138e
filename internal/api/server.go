package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jaelee191/interview-app-sub001/internal/jobs"
	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Submitter creates tasks and crawl jobs.
type Submitter interface {
	SubmitAnalysis(ctx context.Context, kind model.TaskKind, content string, realtime bool) (model.AnalysisTask, error)
	SubmitCrawl(ctx context.Context, rawURL, source string) (string, error)
	SubmitScheduledCrawl(ctx context.Context) (string, error)
}

// TaskReader loads a task by id.
type TaskReader interface {
	GetTask(ctx context.Context, id string) (model.AnalysisTask, error)
}

// AnalysisRequest is the body of POST /api/analyses.
type AnalysisRequest struct {
	Kind     model.TaskKind `json:"kind"`
	Content  string         `json:"content"`
	Realtime bool           `json:"realtime"`
}

// AnalysisAccepted is returned once a task is queued.
type AnalysisAccepted struct {
	ID           string           `json:"id"`
	Status       model.TaskStatus `json:"status"`
	SubscribeURL string           `json:"subscribe_url"`
}

// CrawlRequest is the body of POST /api/crawls. An empty URL crawls every
// configured source.
type CrawlRequest struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// CrawlAccepted is returned once a crawl job is queued.
type CrawlAccepted struct {
	JobID string `json:"job_id"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server exposes task submission, lookup and the progress websocket.
type Server struct {
	submitter Submitter
	tasks     TaskReader
	cable     http.Handler
	logger    *slog.Logger
}

// NewServer creates a Server. cable serves GET /cable.
func NewServer(submitter Submitter, tasks TaskReader, cable http.Handler, logger *slog.Logger) *Server {
	return &Server{submitter: submitter, tasks: tasks, cable: cable, logger: logger}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyses", s.createAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}", s.getAnalysis)
	mux.HandleFunc("POST /api/crawls", s.createCrawl)
	mux.Handle("GET /cable", s.cable)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return otelhttp.NewHandler(mux, "interview-api")
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	task, err := s.submitter.SubmitAnalysis(r.Context(), req.Kind, req.Content, req.Realtime)
	if err != nil {
		s.submitError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, AnalysisAccepted{
		ID:           task.ID,
		Status:       task.Status,
		SubscribeURL: "/cable?task_id=" + url.QueryEscape(task.ID),
	})
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := s.tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("loading task failed", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading task failed")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) createCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	var (
		jobID string
		err   error
	)
	if strings.TrimSpace(req.URL) == "" {
		jobID, err = s.submitter.SubmitScheduledCrawl(r.Context())
	} else {
		jobID, err = s.submitter.SubmitCrawl(r.Context(), req.URL, req.Source)
	}
	if err != nil {
		s.submitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, CrawlAccepted{JobID: jobID})
}

func (s *Server) submitError(w http.ResponseWriter, err error) {
	if errors.Is(err, jobs.ErrInvalidSubmission) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("submission failed", "error", err)
	writeError(w, http.StatusInternalServerError, "submission failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
