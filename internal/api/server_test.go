package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/broadcast"
	"github.com/jaelee191/interview-app-sub001/internal/jobs"
	"github.com/jaelee191/interview-app-sub001/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSubmitter struct {
	mu        sync.Mutex
	analyses  []AnalysisRequest
	crawls    []CrawlRequest
	scheduled int
	err       error
}

func (f *fakeSubmitter) SubmitAnalysis(_ context.Context, kind model.TaskKind, content string, realtime bool) (model.AnalysisTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.AnalysisTask{}, f.err
	}
	f.analyses = append(f.analyses, AnalysisRequest{Kind: kind, Content: content, Realtime: realtime})
	return model.AnalysisTask{ID: fmt.Sprintf("task-%d", len(f.analyses)), Kind: kind, Status: model.TaskPending}, nil
}

func (f *fakeSubmitter) SubmitCrawl(_ context.Context, rawURL, source string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.crawls = append(f.crawls, CrawlRequest{URL: rawURL, Source: source})
	return "job-crawl", nil
}

func (f *fakeSubmitter) SubmitScheduledCrawl(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled++
	return "job-scheduled", nil
}

type fakeTasks map[string]model.AnalysisTask

func (f fakeTasks) GetTask(_ context.Context, id string) (model.AnalysisTask, error) {
	if id == "broken" {
		return model.AnalysisTask{}, errors.New("disk on fire")
	}
	t, ok := f[id]
	if !ok {
		return model.AnalysisTask{}, model.ErrTaskNotFound
	}
	return t, nil
}

func newTestServer(t *testing.T, sub *fakeSubmitter, tasks fakeTasks, hub *broadcast.Hub) (*httptest.Server, *Client) {
	t.Helper()
	if hub == nil {
		hub = broadcast.NewHub(8, discardLogger())
	}
	ws := broadcast.NewWSServer(hub, discardLogger())
	srv := httptest.NewServer(NewServer(sub, tasks, ws.Handler(), discardLogger()).Handler())
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, srv.Client())
}

func TestSubmitAnalysis(t *testing.T) {
	sub := &fakeSubmitter{}
	_, client := newTestServer(t, sub, nil, nil)

	got, err := client.SubmitAnalysis(context.Background(), AnalysisRequest{
		Kind:     model.KindCoverLetter,
		Content:  "저는 백엔드 개발자입니다.",
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("SubmitAnalysis: %v", err)
	}
	if got.ID != "task-1" || got.Status != model.TaskPending {
		t.Errorf("got %+v", got)
	}
	if got.SubscribeURL != "/cable?task_id=task-1" {
		t.Errorf("SubscribeURL = %q", got.SubscribeURL)
	}
	if len(sub.analyses) != 1 || !sub.analyses[0].Realtime || sub.analyses[0].Kind != model.KindCoverLetter {
		t.Errorf("submitted %+v", sub.analyses)
	}
}

func TestSubmitAnalysisInvalid(t *testing.T) {
	sub := &fakeSubmitter{err: fmt.Errorf("%w: content is empty", jobs.ErrInvalidSubmission)}
	_, client := newTestServer(t, sub, nil, nil)

	_, err := client.SubmitAnalysis(context.Background(), AnalysisRequest{Kind: model.KindCompany})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
	if !strings.Contains(err.Error(), "content is empty") {
		t.Errorf("err = %v, want server message", err)
	}
}

func TestSubmitAnalysisInternalError(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("queue closed")}
	_, client := newTestServer(t, sub, nil, nil)

	_, err := client.SubmitAnalysis(context.Background(), AnalysisRequest{Kind: model.KindCompany, Content: "x"})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500", err)
	}
}

func TestSubmitAnalysisBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{}, nil, nil)

	resp, err := http.Post(srv.URL+"/api/analyses", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetAnalysis(t *testing.T) {
	tasks := fakeTasks{
		"t1": {
			ID:     "t1",
			Kind:   model.KindJobPosting,
			Status: model.TaskCompleted,
			Result: &model.AnalysisResult{Text: "## 핵심 정보\n\n내용", Insights: model.NewJobInsights()},
		},
	}
	_, client := newTestServer(t, &fakeSubmitter{}, tasks, nil)

	got, err := client.GetAnalysis(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Status != model.TaskCompleted || got.Result == nil || got.Result.Text != "## 핵심 정보\n\n내용" {
		t.Errorf("got %+v", got)
	}

	_, err = client.GetAnalysis(context.Background(), "missing")
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("missing: err = %v, want ErrTaskNotFound", err)
	}

	_, err = client.GetAnalysis(context.Background(), "broken")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("broken: err = %v, want 500", err)
	}
}

func TestSubmitCrawl(t *testing.T) {
	sub := &fakeSubmitter{}
	_, client := newTestServer(t, sub, nil, nil)

	id, err := client.SubmitCrawl(context.Background(), "https://example.com/a", "example")
	if err != nil || id != "job-crawl" {
		t.Fatalf("SubmitCrawl = %q, %v", id, err)
	}
	id, err = client.SubmitCrawl(context.Background(), "", "")
	if err != nil || id != "job-scheduled" {
		t.Fatalf("SubmitCrawl(empty) = %q, %v", id, err)
	}
	if len(sub.crawls) != 1 || sub.crawls[0].Source != "example" || sub.scheduled != 1 {
		t.Errorf("crawls=%+v scheduled=%d", sub.crawls, sub.scheduled)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSubmitter{}, nil, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWatchStopsAfterTerminalEvent(t *testing.T) {
	hub := broadcast.NewHub(8, discardLogger())
	_, client := newTestServer(t, &fakeSubmitter{}, nil, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := client.Watch(ctx, "t1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	first := <-events
	if first.Type != model.EventConnected {
		t.Fatalf("first event = %s, want connected", first.Type)
	}

	hub.Publish(model.ProgressEvent{TaskID: "t1", Type: model.EventStepProgress, Step: "key_info", Progress: 40})
	hub.Publish(model.ProgressEvent{TaskID: "t1", Type: model.EventCompleted, Progress: 100, RedirectURL: "/analyses/t1"})

	var got []model.EventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	want := []model.EventType{model.EventStepProgress, model.EventCompleted}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}
