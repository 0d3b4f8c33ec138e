package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/jaelee191/interview-app-sub001/internal/cache"
	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
)

var tracer = otel.Tracer("github.com/jaelee191/interview-app-sub001/internal/analysis")

// Mode selects how the steps of a task run.
type Mode int

const (
	// Realtime runs steps one at a time and publishes progress after each.
	Realtime Mode = iota
	// Batch runs steps concurrently and publishes only the terminal event.
	Batch
)

func (m Mode) String() string {
	if m == Batch {
		return "batch"
	}
	return "realtime"
}

// ArticleCrawler fetches a single page for job-posting URLs.
type ArticleCrawler interface {
	CrawlSingle(ctx context.Context, rawURL, source string) (model.CrawledItem, bool, error)
}

// Deps are the collaborators of an Orchestrator. Postings, Companies and
// Crawler are optional.
type Deps struct {
	Tasks     model.TaskStore
	Publisher model.Publisher
	Engine    model.AnalysisEngine
	Postings  *cache.JobPostingCache
	Companies *cache.CompanyCache
	Crawler   ArticleCrawler
}

// Orchestrator runs the step plan of one task, persists the outcome and
// publishes exactly one terminal event per run.
type Orchestrator struct {
	tasks           model.TaskStore
	pub             model.Publisher
	engine          model.AnalysisEngine
	postings        *cache.JobPostingCache
	companies       *cache.CompanyCache
	crawler         ArticleCrawler
	redirectPattern string
	logger          *slog.Logger
}

// New creates an Orchestrator. redirectPattern must contain "{id}".
func New(deps Deps, redirectPattern string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		tasks:           deps.Tasks,
		pub:             deps.Publisher,
		engine:          deps.Engine,
		postings:        deps.Postings,
		companies:       deps.Companies,
		crawler:         deps.Crawler,
		redirectPattern: redirectPattern,
		logger:          logger,
	}
}

// Run executes task in mode. Errors are returned to the caller for retry
// decisions; the orchestrator itself never retries. A task that already
// completed is left untouched.
func (o *Orchestrator) Run(ctx context.Context, task model.AnalysisTask, mode Mode) (model.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.kind", string(task.Kind)),
		attribute.String("analysis.mode", mode.String()),
	)

	logger := o.logger.With("task_id", task.ID, "kind", task.Kind, "mode", mode.String())

	if err := o.tasks.MarkRunning(ctx, task.ID); err != nil {
		if errors.Is(err, model.ErrTaskCompleted) {
			logger.Info("task already completed, skipping")
			return model.AnalysisResult{}, nil
		}
		err = fmt.Errorf("starting task %s: %w", task.ID, err)
		o.publishError(task.ID, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.AnalysisResult{}, err
	}

	start := time.Now()
	result, err := o.analyze(ctx, task, mode)
	if err != nil {
		err = fmt.Errorf("analyzing task %s: %w", task.ID, err)
		o.fail(ctx, logger, task.ID, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.AnalysisResult{}, err
	}

	if err := o.tasks.MarkCompleted(ctx, task.ID, result); err != nil {
		err = fmt.Errorf("saving result for task %s: %w", task.ID, err)
		logger.Error("saving result failed", "error", err)
		o.publishError(task.ID, "saving result failed: "+err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.AnalysisResult{}, err
	}

	evType, msg := model.EventCompleted, "분석이 완료되었습니다."
	if mode == Batch {
		evType, msg = model.EventSaveCompleted, "분석 결과가 저장되었습니다."
	}
	o.pub.Publish(model.ProgressEvent{
		TaskID:      task.ID,
		Type:        evType,
		Message:     msg,
		Status:      string(model.TaskCompleted),
		Progress:    100,
		RedirectURL: o.redirectURL(task.ID),
	})
	logger.Info("analysis completed",
		"sections", len(result.Sections),
		"cached", result.Cached,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// fail persists the failure and publishes the terminal error event.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, taskID string, cause error) {
	logger.Error("analysis failed", "error", cause)
	if err := o.tasks.MarkFailed(ctx, taskID, cause.Error()); err != nil {
		logger.Error("persisting failure", "error", err)
	}
	o.publishError(taskID, cause.Error())
}

func (o *Orchestrator) publishError(taskID, msg string) {
	o.pub.Publish(model.ProgressEvent{
		TaskID:         taskID,
		Type:           model.EventError,
		Message:        msg,
		Status:         string(model.TaskFailed),
		RetryAvailable: true,
	})
}

func (o *Orchestrator) redirectURL(taskID string) string {
	return strings.ReplaceAll(o.redirectPattern, "{id}", url.PathEscape(taskID))
}

func (o *Orchestrator) analyze(ctx context.Context, task model.AnalysisTask, mode Mode) (model.AnalysisResult, error) {
	steps, err := PlanFor(task.Kind)
	if err != nil {
		return model.AnalysisResult{}, retry.Permanent(err)
	}

	content := task.Content
	switch task.Kind {
	case model.KindJobPosting:
		content, err = o.resolvePosting(ctx, task.Content)
		if err != nil {
			return model.AnalysisResult{}, err
		}
	case model.KindCompany:
		if res, ok := o.cachedCompany(ctx, task, mode); ok {
			return res, nil
		}
	}

	var sections []model.Section
	if mode == Batch {
		sections, err = o.runConcurrent(ctx, task, content, steps)
	} else {
		sections, err = o.runSequential(ctx, task, content, steps)
	}
	if err != nil {
		return model.AnalysisResult{}, err
	}

	result := aggregate(sections)
	if task.Kind == model.KindCompany {
		o.storeCompany(ctx, task.Content, result)
	}
	return result, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, task model.AnalysisTask, content string, steps []Step) ([]model.Section, error) {
	sections := make([]model.Section, 0, len(steps))
	progress := 0
	for _, step := range steps {
		out, err := o.runStep(ctx, task.Kind, step, content)
		if err != nil {
			return nil, err
		}
		sections = append(sections, model.Section{Step: step.Name, Title: step.Title, Content: out})
		progress += step.Weight
		o.pub.Publish(model.ProgressEvent{
			TaskID:   task.ID,
			Type:     model.EventStepProgress,
			Message:  step.Title + " 분석 완료",
			Status:   string(model.TaskRunning),
			Step:     step.Name,
			Progress: progress,
		})
	}
	return sections, nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, task model.AnalysisTask, content string, steps []Step) ([]model.Section, error) {
	sections := make([]model.Section, len(steps))
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range steps {
		g.Go(func() error {
			out, err := o.runStep(gctx, task.Kind, step, content)
			if err != nil {
				return err
			}
			sections[i] = model.Section{Step: step.Name, Title: step.Title, Content: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}

func (o *Orchestrator) runStep(ctx context.Context, kind model.TaskKind, step Step, content string) (string, error) {
	ctx, span := tracer.Start(ctx, "analysis.step")
	defer span.End()
	span.SetAttributes(attribute.String("analysis.step", step.Name))

	out, err := o.engine.Analyze(ctx, model.AnalysisRequest{Kind: kind, Step: step.Name, Content: content})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("step %s: %w", step.Name, err)
	}
	return out, nil
}

func aggregate(sections []model.Section) model.AnalysisResult {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", s.Title, strings.TrimSpace(s.Content))
	}
	text := b.String()
	insights := Extract(text)
	summary, _ := Summarize(text, insights)
	return model.AnalysisResult{
		Sections: sections,
		Text:     text,
		Insights: insights,
		Summary:  summary,
	}
}

// resolvePosting returns the posting body for content. Plain text is used
// as is; a URL is served from the posting cache or crawled and cached.
func (o *Orchestrator) resolvePosting(ctx context.Context, content string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(content))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return content, nil
	}
	link := u.String()

	if o.postings != nil {
		posting, ok, err := o.postings.Get(ctx, link)
		if err != nil {
			o.logger.Warn("reading posting cache", "url", link, "error", err)
		} else if ok {
			o.logger.Debug("posting cache hit", "url", link)
			return posting.Content, nil
		}
	}

	if o.crawler == nil {
		return content, nil
	}
	item, found, err := o.crawler.CrawlSingle(ctx, link, u.Host)
	if err != nil {
		return "", fmt.Errorf("fetching job posting: %w", err)
	}
	if !found {
		return "", retry.Permanent(fmt.Errorf("job posting %s not found", link))
	}

	body := item.Content
	if item.Title != "" {
		body = item.Title + "\n\n" + body
	}
	if o.postings != nil {
		if _, err := o.postings.Put(ctx, link, body, cache.PostingMeta{Source: u.Host}); err != nil {
			o.logger.Warn("writing posting cache", "url", link, "error", err)
		}
	}
	return body, nil
}

// cachedCompany serves a still-valid company analysis without calling the
// engine.
func (o *Orchestrator) cachedCompany(ctx context.Context, task model.AnalysisTask, mode Mode) (model.AnalysisResult, bool) {
	if o.companies == nil {
		return model.AnalysisResult{}, false
	}
	profile, ok, err := o.companies.Get(ctx, task.Content)
	if err != nil {
		o.logger.Warn("reading company cache", "company", task.Content, "error", err)
		return model.AnalysisResult{}, false
	}
	if !ok {
		return model.AnalysisResult{}, false
	}

	if mode == Realtime {
		o.pub.Publish(model.ProgressEvent{
			TaskID:   task.ID,
			Type:     model.EventStepProgress,
			Message:  "저장된 기업 분석을 불러왔습니다.",
			Status:   string(model.TaskRunning),
			Step:     "cache",
			Progress: 100,
		})
	}

	insights := Extract(profile.Analysis)
	if insights.Industry == "" {
		insights.Industry = profile.Industry
	}
	summary := profile.ExecutiveSummary
	if summary == "" {
		summary, _ = Summarize(profile.Analysis, insights)
	}
	return model.AnalysisResult{
		Sections: []model.Section{{Step: "cache", Title: profile.Name, Content: profile.Analysis}},
		Text:     profile.Analysis,
		Insights: insights,
		Summary:  summary,
		Cached:   true,
	}, true
}

func (o *Orchestrator) storeCompany(ctx context.Context, name string, result model.AnalysisResult) {
	if o.companies == nil {
		return
	}
	p := cache.CompanyProfile{
		Name:             strings.TrimSpace(name),
		Analysis:         result.Text,
		Industry:         result.Insights.Industry,
		ExecutiveSummary: result.Summary,
	}
	// Size and issues come only from labeled overview fields; other steps
	// are free text and stay in Analysis.
	for _, s := range result.Sections {
		switch s.Step {
		case "overview":
			p.BusinessContext = s.Content
			p.CompanySize = firstGroup(sizePattern, s.Content)
			p.RecentIssues = firstGroup(issuesPattern, s.Content)
		case "hiring":
			p.HiringPatterns = s.Content
		}
	}
	if err := o.companies.Put(ctx, p); err != nil {
		o.logger.Warn("writing company cache", "company", name, "error", err)
	}
}
