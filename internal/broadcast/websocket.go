package broadcast

import (
	"log/slog"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Command is a client-to-server message on the websocket.
type Command struct {
	Command string `json:"command"`
	TaskID  string `json:"task_id,omitempty"`
}

// CommandRequestStatus asks for a status_update on a task topic.
const CommandRequestStatus = "request_status"

// WSServer streams a task's progress events over a websocket.
// Clients connect with ?task_id=<id>.
type WSServer struct {
	hub    *Hub
	logger *slog.Logger
}

// NewWSServer creates a websocket server over hub.
func NewWSServer(hub *Hub, logger *slog.Logger) *WSServer {
	return &WSServer{hub: hub, logger: logger}
}

// Handler returns the http.Handler to mount.
func (s *WSServer) Handler() http.Handler {
	// A zero Handshake skips the Origin check so non-browser clients can connect.
	return websocket.Server{Handler: s.serve}
}

func (s *WSServer) serve(ws *websocket.Conn) {
	defer ws.Close()

	taskID := ws.Request().URL.Query().Get("task_id")
	if taskID == "" {
		websocket.JSON.Send(ws, model.ProgressEvent{Type: model.EventError, Message: "task_id is required"})
		return
	}

	logger := s.logger.With("task_id", taskID, "remote", ws.Request().RemoteAddr)
	sub := s.hub.Subscribe(taskID)
	defer sub.Close()
	logger.Debug("websocket subscribed")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd Command
			if err := websocket.JSON.Receive(ws, &cmd); err != nil {
				return
			}
			switch cmd.Command {
			case CommandRequestStatus:
				id := cmd.TaskID
				if id == "" {
					id = taskID
				}
				s.hub.RequestStatus(id)
			default:
				logger.Debug("ignoring unknown command", "command", cmd.Command)
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, ev); err != nil {
				logger.Debug("websocket send failed", "error", err)
				return
			}
		case <-done:
			logger.Debug("websocket closed by client")
			return
		}
	}
}
