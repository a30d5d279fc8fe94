package updates

import (
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/zigral/zigral/pkg/events"
)

// pingMessage is the liveness probe subscribers may send; it is answered
// with a pong event echoing the payload.
const pingMessage = "ping"

// Handler upgrades `GET /ws/updates/:clientID` to a WebSocket subscription.
func (h *Hub) Handler() fiber.Handler {
	upgrader := websocket.FastHTTPUpgrader{
		CheckOrigin: func(_ *fasthttp.RequestCtx) bool { return true },
	}

	return func(c fiber.Ctx) error {
		clientID := c.Params("clientID")
		if clientID == "" {
			return fiber.ErrBadRequest
		}

		return upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
			h.Register(clientID, conn)
			defer h.Unregister(clientID)

			for {
				messageType, payload, err := conn.ReadMessage()
				if err != nil {
					return
				}

				if messageType == websocket.TextMessage && string(payload) == pingMessage {
					h.SendTo(clientID, events.Pong{
						BaseEvent: events.NewBaseEvent(events.PongEvent, ""),
						Data:      string(payload),
					})
				}
			}
		})
	}
}
