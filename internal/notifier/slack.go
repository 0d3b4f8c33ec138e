package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxJobsPerMessage keeps a message under Slack's 50-block limit.
const maxJobsPerMessage = 10

// SlackNotifier posts dead-letter alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts failures to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyFailures sends the failed jobs in messages of up to ten jobs each.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) NotifyFailures(jobs []model.FailedJob) error {
	if len(jobs) == 0 {
		return nil
	}

	var batches [][]model.FailedJob
	for start := 0; start < len(jobs); start += maxJobsPerMessage {
		end := min(start+maxJobsPerMessage, len(jobs))
		batches = append(batches, jobs[start:end])
	}

	failures := 0
	for i, batch := range batches {
		if i > 0 {
			time.Sleep(500 * time.Millisecond)
		}
		if err := s.sendMessage(batch); err != nil {
			s.logger.Error("slack notification failed", "jobs", len(batch), "error", err)
			failures++
		}
	}

	if failures == len(batches) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", len(batches)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(jobs []model.FailedJob) error {
	body, err := json.Marshal(buildPayload(jobs))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "jobs", len(jobs), "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "jobs", len(jobs))
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample failure to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	return n.NotifyFailures([]model.FailedJob{{
		ID:       "test-001",
		Type:     "analysis",
		Queue:    "default",
		Attempts: 3,
		Error:    "test notification, integration verified",
		FailedAt: time.Now(),
	}})
}

func buildPayload(jobs []model.FailedJob) slackPayload {
	title := fmt.Sprintf("⚠️ %d job(s) failed permanently", len(jobs))
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
	}
	for _, j := range jobs {
		blocks = append(blocks,
			slackBlock{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Type:*\n" + j.Type},
					{Type: "mrkdwn", Text: "*Queue:*\n" + j.Queue},
					{Type: "mrkdwn", Text: "*Job:*\n`" + j.ID + "`"},
					{Type: "mrkdwn", Text: "*Attempts:*\n" + strconv.Itoa(j.Attempts)},
				},
			},
			slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: "*Error:* " + truncate(j.Error, 500) + "\n_" + j.FailedAt.UTC().Format(time.RFC1123) + "_"},
			},
			slackBlock{Type: "divider"},
		)
	}
	return slackPayload{Blocks: blocks}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
