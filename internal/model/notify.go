package model

import "time"

// FailedJob describes a job that exhausted its retries.
type FailedJob struct {
	ID       string
	Type     string
	Queue    string
	Attempts int
	Error    string
	FailedAt time.Time
}

// Notifier reports jobs that will not be retried again.
type Notifier interface {
	NotifyFailures(jobs []FailedJob) error
}
