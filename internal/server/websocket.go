package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/govdash/pkg/errors"
	"github.com/matzehuels/govdash/pkg/graph"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsEvent is a message pushed to websocket clients.
type wsEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsCommand is a message sent by websocket clients.
type wsCommand struct {
	Type string  `json:"type"`
	ID   string  `json:"id,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// handleWS pushes the controller state on connect and after every change.
// Clients may send click, select, deselect and refresh commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	states, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	errs := make(chan error, 1)
	go func() {
		defer cancel()
		s.readCommands(ctx, conn, errs)
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(time.Second))
			return
		case err := <-errs:
			if err := s.writeEvent(conn, "error", map[string]string{"error": errors.UserMessage(err), "code": string(errors.GetCode(err))}); err != nil {
				return
			}
		case st, ok := <-states:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second))
				return
			}
			if err := s.writeEvent(conn, "state", st); err != nil {
				s.logger.Debug("websocket write failed", "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, typ string, payload any) error {
	b, err := json.Marshal(wsEvent{Type: typ, Payload: payload})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// readCommands applies client commands until the connection fails. Command
// errors are reported on errs; the resulting state change arrives through
// the subscription.
func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, errs chan<- error) {
	conn.SetReadLimit(maxBody)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if err := s.apply(ctx, cmd); err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}
}

func (s *Server) apply(ctx context.Context, cmd wsCommand) error {
	switch cmd.Type {
	case "click":
		s.ctrl.Click(graph.Point{X: cmd.X, Y: cmd.Y})
	case "select":
		return s.ctrl.Select(cmd.ID)
	case "deselect":
		s.ctrl.Deselect()
	case "refresh":
		_, err := s.ctrl.Tick(ctx)
		return err
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown command %q", cmd.Type)
	}
	return nil
}
