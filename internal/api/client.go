package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Client talks to a running API server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// SubmitAnalysis queues a new analysis task.
func (c *Client) SubmitAnalysis(ctx context.Context, req AnalysisRequest) (AnalysisAccepted, error) {
	var out AnalysisAccepted
	err := c.do(ctx, http.MethodPost, "/api/analyses", req, http.StatusAccepted, &out)
	return out, err
}

// GetAnalysis loads a task. A missing task returns an error wrapping
// model.ErrTaskNotFound.
func (c *Client) GetAnalysis(ctx context.Context, id string) (model.AnalysisTask, error) {
	var out model.AnalysisTask
	err := c.do(ctx, http.MethodGet, "/api/analyses/"+url.PathEscape(id), nil, http.StatusOK, &out)
	return out, err
}

// SubmitCrawl queues a crawl of rawURL, or of every source when rawURL is empty.
func (c *Client) SubmitCrawl(ctx context.Context, rawURL, source string) (string, error) {
	var out CrawlAccepted
	err := c.do(ctx, http.MethodPost, "/api/crawls", CrawlRequest{URL: rawURL, Source: source}, http.StatusAccepted, &out)
	return out.JobID, err
}

// Watch subscribes to a task's progress events. The channel closes after a
// terminal event, when the connection drops, or when ctx is cancelled.
func (c *Client) Watch(ctx context.Context, taskID string) (<-chan model.ProgressEvent, error) {
	wsURL, origin, err := c.cableURL(taskID)
	if err != nil {
		return nil, err
	}
	cfg, err := websocket.NewConfig(wsURL, origin)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", taskID, err)
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", taskID, err)
	}

	events := make(chan model.ProgressEvent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ws.Close()
	}()

	go func() {
		defer close(events)
		defer close(stop)
		for {
			var ev model.ProgressEvent
			if err := websocket.JSON.Receive(ws, &ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Type.Terminal() {
				return
			}
		}
	}()
	return events, nil
}

func (c *Client) cableURL(taskID string) (string, string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", "", fmt.Errorf("parse base url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/cable"
	u.RawQuery = url.Values{"task_id": {taskID}}.Encode()
	return u.String(), origin, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)
		httpErr := &model.HTTPError{StatusCode: resp.StatusCode, URL: c.baseURL + path}
		if eb.Error != "" {
			httpErr.Err = errors.New(eb.Error)
		}
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/analyses/") {
			httpErr.Err = model.ErrTaskNotFound
		}
		return httpErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
