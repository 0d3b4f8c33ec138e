package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.AnalysisEngine = (*LLMEngine)(nil)

// LLMEngine renders a step's prompt and asks the provider to complete it.
type LLMEngine struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMEngine creates an engine over provider using the step templates in tmpl.
func NewLLMEngine(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMEngine {
	return &LLMEngine{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Analyze runs a single analysis step.
func (e *LLMEngine) Analyze(ctx context.Context, req model.AnalysisRequest) (string, error) {
	name := string(req.Kind) + "." + req.Step
	t := e.tmpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("no prompt for step %s", name)
	}

	var prompt bytes.Buffer
	if err := t.Execute(&prompt, req); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}

	start := time.Now()
	out, err := e.provider.Complete(ctx, systemPrompts[string(req.Kind)], prompt.String())
	if err != nil {
		return "", fmt.Errorf("llm complete %s: %w", name, err)
	}
	e.logger.Debug("analysis step completed", "step", name, "duration", time.Since(start).Round(time.Millisecond))
	return out, nil
}
