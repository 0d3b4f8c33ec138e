package broadcast

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.Publisher = (*PGRelay)(nil)

// drainTimeout bounds how long Run keeps sending queued events after its
// context is cancelled.
const drainTimeout = 2 * time.Second

// PGRelay carries progress events between processes over Postgres
// LISTEN/NOTIFY. Publish queues events for NOTIFY; Run sends them and
// forwards every notification on the channel into the local hub.
type PGRelay struct {
	db      *sql.DB
	dsn     string
	channel string
	hub     *Hub
	outbox  chan model.ProgressEvent
	send    func(context.Context, model.ProgressEvent) error
	now     func() time.Time
	logger  *slog.Logger
}

// NewPGRelay opens a Postgres connection for NOTIFY.
func NewPGRelay(dsn, channel string, hub *Hub, buffer int, logger *slog.Logger) (*PGRelay, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(2)
	if buffer <= 0 {
		buffer = 64
	}
	r := &PGRelay{
		db:      db,
		dsn:     dsn,
		channel: channel,
		hub:     hub,
		outbox:  make(chan model.ProgressEvent, buffer),
		now:     time.Now,
		logger:  logger,
	}
	r.send = r.notify
	return r, nil
}

// Close closes the NOTIFY connection.
func (r *PGRelay) Close() error {
	return r.db.Close()
}

// Publish queues ev for NOTIFY without blocking. The event is dropped when
// the outbox is full.
func (r *PGRelay) Publish(ev model.ProgressEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	select {
	case r.outbox <- ev:
	default:
		r.logger.Warn("relay outbox full, dropping event", "task_id", ev.TaskID, "type", ev.Type)
	}
}

// Run listens on the channel and drains the outbox until ctx is done.
// Events still queued at cancellation are sent before Run returns, bounded
// by drainTimeout.
func (r *PGRelay) Run(ctx context.Context) error {
	listener := pq.NewListener(r.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Warn("postgres listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(r.channel); err != nil {
		return fmt.Errorf("listening on %s: %w", r.channel, err)
	}
	r.logger.Info("postgres relay listening", "channel", r.channel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drain(drainTimeout)
			return nil
		case ev := <-r.outbox:
			if err := r.send(ctx, ev); err != nil {
				r.logger.Error("sending notify", "task_id", ev.TaskID, "error", err)
			}
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			var ev model.ProgressEvent
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				r.logger.Warn("decoding notification", "error", err)
				continue
			}
			r.hub.Publish(ev)
		case <-ping.C:
			go listener.Ping()
		}
	}
}

// drain sends whatever is queued in the outbox, giving up after timeout.
func (r *PGRelay) drain(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		select {
		case ev := <-r.outbox:
			if err := r.send(ctx, ev); err != nil {
				r.logger.Error("sending notify on shutdown", "task_id", ev.TaskID, "error", err)
				if ctx.Err() != nil {
					return
				}
			}
		default:
			return
		}
	}
}

func (r *PGRelay) notify(ctx context.Context, ev model.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", r.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}
