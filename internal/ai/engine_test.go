package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	system, prompt string
	out            string
	err            error
}

func (f *fakeProvider) Complete(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.out, f.err
}

func TestLLMEngine_RendersStepPrompt(t *testing.T) {
	p := &fakeProvider{out: "analysis"}
	e := NewLLMEngine(p, Prompts, discardLogger())

	got, err := e.Analyze(context.Background(), model.AnalysisRequest{
		Kind:    model.KindJobPosting,
		Step:    "key_info",
		Content: "백엔드 개발자 채용",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got != "analysis" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(p.prompt, "백엔드 개발자 채용") || !strings.Contains(p.prompt, "**기업명**") {
		t.Errorf("prompt missing content or format: %q", p.prompt)
	}
	if p.system == "" {
		t.Error("system prompt is empty")
	}
}

func TestLLMEngine_AllStepsHavePrompts(t *testing.T) {
	steps := map[model.TaskKind][]string{
		model.KindCoverLetter: {"first_impression", "strengths", "improvements", "hidden_gems", "encouragement"},
		model.KindJobPosting:  {"key_info", "strategy"},
		model.KindCompany:     {"overview", "hiring", "preparation", "advice"},
	}
	for kind, names := range steps {
		for _, step := range names {
			if Prompts.Lookup(string(kind)+"."+step) == nil {
				t.Errorf("missing prompt %s.%s", kind, step)
			}
		}
	}
}

func TestLLMEngine_UnknownStep(t *testing.T) {
	e := NewLLMEngine(&fakeProvider{}, Prompts, discardLogger())
	_, err := e.Analyze(context.Background(), model.AnalysisRequest{Kind: model.KindCompany, Step: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown step")
	}
}

func TestLLMEngine_WrapsProviderError(t *testing.T) {
	cause := &model.HTTPError{StatusCode: 503}
	e := NewLLMEngine(&fakeProvider{err: cause}, Prompts, discardLogger())
	_, err := e.Analyze(context.Background(), model.AnalysisRequest{Kind: model.KindCompany, Step: "overview", Content: "Acme"})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected wrapped HTTPError, got %v", err)
	}
}

func TestNopEngine_Placeholder(t *testing.T) {
	out, err := NewNopEngine().Analyze(context.Background(), model.AnalysisRequest{Kind: model.KindCoverLetter, Step: "strengths", Content: strings.Repeat("가", 200)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(out, "strengths") || !strings.Contains(out, "...") {
		t.Errorf("out = %q", out)
	}
}
