package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// DefaultStatus is reported for a topic that has seen no events yet.
const DefaultStatus = "ready"

var _ model.Publisher = (*Hub)(nil)

// Hub fans progress events out to subscribers by task id. Publish never
// blocks: an event is dropped for a subscriber whose buffer is full.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	status map[string]string
	buffer int
	now    func() time.Time
	logger *slog.Logger
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		status: make(map[string]string),
		buffer: buffer,
		now:    time.Now,
		logger: logger,
	}
}

// Subscription is one subscriber's stream of events for a task.
type Subscription struct {
	hub    *Hub
	taskID string
	ch     chan model.ProgressEvent
	once   sync.Once
}

// Events returns the event stream. It is closed by Close.
func (s *Subscription) Events() <-chan model.ProgressEvent { return s.ch }

// TaskID returns the subscribed topic.
func (s *Subscription) TaskID() string { return s.taskID }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Subscribe registers a subscriber for taskID and then publishes a
// connected event to the topic.
func (h *Hub) Subscribe(taskID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		taskID: taskID,
		ch:     make(chan model.ProgressEvent, h.buffer),
	}

	h.mu.Lock()
	topic, ok := h.subs[taskID]
	if !ok {
		topic = make(map[*Subscription]struct{})
		h.subs[taskID] = topic
	}
	topic[sub] = struct{}{}
	h.mu.Unlock()

	h.Publish(model.ProgressEvent{
		TaskID:  taskID,
		Type:    model.EventConnected,
		Message: "connected",
	})
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	topic := h.subs[sub.taskID]
	delete(topic, sub)
	if len(topic) == 0 {
		delete(h.subs, sub.taskID)
		delete(h.status, sub.taskID)
	}
	close(sub.ch)
}

// Publish timestamps ev and delivers it to every subscriber of its task.
// With no subscribers it is a no-op.
func (h *Hub) Publish(ev model.ProgressEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topic := h.subs[ev.TaskID]
	if len(topic) == 0 {
		return
	}
	if s := statusOf(ev); s != "" {
		h.status[ev.TaskID] = s
	}
	for sub := range topic {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("subscriber buffer full, dropping event", "task_id", ev.TaskID, "type", ev.Type)
		}
	}
}

// RequestStatus publishes a status_update carrying the last status seen on
// the topic. It does not consult persisted state.
func (h *Hub) RequestStatus(taskID string) {
	h.mu.Lock()
	status, ok := h.status[taskID]
	h.mu.Unlock()
	if !ok {
		status = DefaultStatus
	}
	h.Publish(model.ProgressEvent{
		TaskID:  taskID,
		Type:    model.EventStatusUpdate,
		Message: "status: " + status,
		Status:  status,
	})
}

// Subscribers returns the number of subscribers for taskID.
func (h *Hub) Subscribers(taskID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[taskID])
}

func statusOf(ev model.ProgressEvent) string {
	if ev.Status != "" {
		return ev.Status
	}
	switch ev.Type {
	case model.EventStepProgress:
		return string(model.TaskRunning)
	case model.EventCompleted, model.EventSaveCompleted:
		return string(model.TaskCompleted)
	case model.EventError:
		return string(model.TaskFailed)
	}
	return ""
}
