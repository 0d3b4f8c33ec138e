package model

import (
	"context"
	"time"
)

// TaskStatus is the lifecycle state of an analysis task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskKind selects which analysis plan runs for a task.
type TaskKind string

const (
	KindCoverLetter TaskKind = "cover_letter"
	KindJobPosting  TaskKind = "job_posting"
	KindCompany     TaskKind = "company"
)

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	switch k {
	case KindCoverLetter, KindJobPosting, KindCompany:
		return true
	}
	return false
}

// AnalysisTask is one user-submitted analysis request.
type AnalysisTask struct {
	ID          string          `json:"id"`
	Kind        TaskKind        `json:"kind"`
	Content     string          `json:"content"`
	Status      TaskStatus      `json:"status"`
	Result      *AnalysisResult `json:"result,omitempty"` // set only when completed
	Error       string          `json:"error,omitempty"`  // set only when failed
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Terminal reports whether the task has reached completed or failed.
func (t AnalysisTask) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// Section is the output of one analysis step.
type Section struct {
	Step    string `json:"step"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AnalysisResult is the aggregated output persisted on a completed task.
type AnalysisResult struct {
	Sections []Section   `json:"sections"`
	Text     string      `json:"text"`
	Insights JobInsights `json:"insights"`
	Summary  string      `json:"summary,omitempty"`
	Cached   bool        `json:"cached,omitempty"` // served from the company cache
}

// JobInsights holds fields extracted from semi-structured analysis text.
// Any field may be empty.
type JobInsights struct {
	CompanyName    string   `json:"company_name,omitempty"`
	Position       string   `json:"position,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	Keywords       []string `json:"keywords"`
	RequiredSkills []string `json:"required_skills"`
	CompanyValues  []string `json:"company_values"`
}

// NewJobInsights returns insights whose list fields are never nil.
func NewJobInsights() JobInsights {
	return JobInsights{
		Keywords:       []string{},
		RequiredSkills: []string{},
		CompanyValues:  []string{},
	}
}

// Empty reports whether no field was populated.
func (i JobInsights) Empty() bool {
	return i.CompanyName == "" && i.Position == "" && i.Industry == "" &&
		len(i.Keywords) == 0 && len(i.RequiredSkills) == 0 && len(i.CompanyValues) == 0
}

// TaskStore persists analysis tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task AnalysisTask) error
	GetTask(ctx context.Context, id string) (AnalysisTask, error)
	// MarkRunning moves a task to running. Returns ErrTaskCompleted if the
	// task already completed.
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, result AnalysisResult) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// AnalysisRequest is one step's input to the analysis engine.
type AnalysisRequest struct {
	Kind    TaskKind
	Step    string
	Content string
}

// AnalysisEngine turns text into free-text analysis for a single step.
type AnalysisEngine interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}
