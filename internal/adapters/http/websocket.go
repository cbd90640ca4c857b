package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geomatch/internal/adapters/nats"
	"github.com/samirrijal/geomatch/internal/pkg/metrics"
)

// wsEvent is what clients receive for each completed run.
type wsEvent struct {
	Type string                        `json:"type"`
	Run  natsadapter.RunCompletedEvent `json:"run"`
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// run-completed events from NATS to the client as JSON, whatever encoding
// the publisher used. Messages sent by the client are ignored.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.With("remote_addr", c.RemoteAddr().String())
		log.Info("ws client connected")

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(messageType, data)
		}

		sub, err := nc.Subscribe(natsadapter.SubjectRuns, func(msg *nats.Msg) {
			ev, err := natsadapter.DecodeRunCompleted(msg.Data, msg.Header.Get("Content-Type"))
			if err != nil {
				log.Warn("ws dropping undecodable event", "subject", msg.Subject, "error", err)
				return
			}
			data, err := json.Marshal(wsEvent{Type: "run.completed", Run: ev})
			if err != nil {
				return
			}
			_ = write(websocket.TextMessage, data)
		})
		if err != nil {
			log.Error("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		log.Info("ws client disconnected")
	}
}
