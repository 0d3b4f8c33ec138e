package ai

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.AnalysisEngine = (*NopEngine)(nil)

// NopEngine is used when ai.enabled is false. It makes no LLM calls and
// returns a placeholder section so the pipeline still runs end to end.
type NopEngine struct{}

// NewNopEngine returns a NopEngine.
func NewNopEngine() *NopEngine {
	return &NopEngine{}
}

// Analyze returns a placeholder naming the step and quoting the input.
func (n *NopEngine) Analyze(_ context.Context, req model.AnalysisRequest) (string, error) {
	excerpt := req.Content
	if utf8.RuneCountInString(excerpt) > 80 {
		excerpt = string([]rune(excerpt)[:80]) + "..."
	}
	return fmt.Sprintf("### %s\nAI analysis is disabled. Input: %q", req.Step, excerpt), nil
}
