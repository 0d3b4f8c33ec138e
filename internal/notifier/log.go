package notifier

import (
	"log/slog"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes dead-lettered jobs to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each failed job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyFailures logs each job. Returns nil (stdout logging does not fail).
func (n *LogNotifier) NotifyFailures(jobs []model.FailedJob) error {
	for _, j := range jobs {
		n.logger.Error("job failed permanently",
			"job_id", j.ID,
			"type", j.Type,
			"queue", j.Queue,
			"attempts", j.Attempts,
			"error", j.Error,
			"failed_at", j.FailedAt,
		)
	}
	return nil
}
