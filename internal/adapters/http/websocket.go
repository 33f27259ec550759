package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/wayfarelabs/wayfare/internal/adapters/nats"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

// TourWebSocketHandler relays the realtime event stream for one tour to a
// connected client: proximity hints, status changes, route updates. The tour
// ID comes from the upgraded route's path parameter.
func TourWebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		tourID := c.Params("id")
		if tourID == "" {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"tour id is required"}`))
			return
		}
		if nc == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"realtime events not available"}`))
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "tour_id", tourID, "remote", c.RemoteAddr().String())

		// Write serialization: the NATS callback and the ping loop race on
		// the connection otherwise.
		var mu sync.Mutex
		write := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sub, err := nc.Subscribe(natsadapter.TourSubject(tourID), func(msg *nats.Msg) {
			_ = write(msg.Data)
		})
		if err != nil {
			_ = write([]byte(`{"error":"subscribe failed"}`))
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
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// The stream is one-way; inbound messages only keep the connection
		// alive, except a well-formed close request.
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			var m struct {
				Action string `json:"action"`
			}
			if json.Unmarshal(msg, &m) == nil && m.Action == "close" {
				break
			}
		}

		slog.Info("ws client disconnected", "tour_id", tourID)
	}
}
