package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kazuninishiki/SysMonServer/internal/hub"
	"github.com/kazuninishiki/SysMonServer/internal/model"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	s.registry.Register(id, remoteAddress(r))
	sub := s.hub.Subscribe(id)
	defer func() {
		s.hub.Unsubscribe(id)
		s.registry.Unregister(id)
	}()

	// Queue the initial snapshot ahead of the first tick.
	if data, err := hub.Encode(model.StatsMessage(s.snaps.Current())); err == nil {
		sub.Offer(data)
	} else {
		s.logger.Error("initial snapshot encode failed", "client_id", id, "error", err)
	}

	go s.writeLoop(conn, sub)
	s.readLoop(conn, sub)
}

// readLoop handles inbound frames until the connection fails.
func (s *Server) readLoop(conn *websocket.Conn, sub *hub.Subscription) {
	id := sub.ID()
	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		s.registry.Touch(id)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug("ws read failed", "client_id", id, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		s.registry.Touch(id)

		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("ignoring malformed message", "client_id", id, "error", err)
			continue
		}
		if !isIntervalRequest(msg) {
			continue
		}
		if !s.registry.SetCadence(id, msg.IntervalMs) {
			continue
		}
		ack, err := hub.Encode(model.Message{Type: model.MessageIntervalUpdated, IntervalMs: msg.IntervalMs})
		if err != nil {
			s.logger.Error("ack encode failed", "client_id", id, "error", err)
			continue
		}
		sub.Offer(ack)
	}
}

// isIntervalRequest accepts the typed envelope and the bare
// {"intervalMs": N} form.
func isIntervalRequest(msg model.Message) bool {
	switch msg.Type {
	case model.MessageUpdateInterval:
		return true
	case "":
		return msg.IntervalMs != 0
	}
	return false
}

// writeLoop is the only writer on conn. A failed write closes the
// connection, which ends readLoop and unregisters the consumer.
func (s *Server) writeLoop(conn *websocket.Conn, sub *hub.Subscription) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case data := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("dropping unresponsive client", "client_id", sub.ID(), "error", err)
				_ = conn.Close()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
