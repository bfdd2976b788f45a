package api

import (
	"github.com/ghostbus/ghostbus/pkg/broadcast"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RealtimeRouter exposes the broadcast hub over a websocket. Every
// connection becomes one subscriber: a full snapshot arrives first, then one
// bus_update message per changed vehicle. A broken connection just
// unregisters its subscriber; ingest and the other subscribers are
// unaffected
func RealtimeRouter(router fiber.Router, hub *broadcast.Hub) {
	router.Use("/", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}

		return fiber.ErrUpgradeRequired
	})

	router.Get("/", websocket.New(func(conn *websocket.Conn) {
		subscriber := hub.Subscribe()
		defer hub.Unsubscribe(subscriber)

		// Drain inbound frames so pings & closes are handled; the channel is
		// one way otherwise
		disconnected := make(chan struct{})
		go func() {
			defer close(disconnected)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case envelope, ok := <-subscriber.Messages():
				if !ok {
					return
				}

				if err := conn.WriteJSON(envelope); err != nil {
					log.Debug().Err(err).Msg("Subscriber write failed, disconnecting")
					return
				}
			case <-disconnected:
				return
			}
		}
	}))
}
