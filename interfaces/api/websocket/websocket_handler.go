package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "smart-gallery/infrastructure/websocket"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

type WebSocketHandler struct {
	manager *websocketManager.ConnectionManager
}

func NewWebSocketHandler(manager *websocketManager.ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// WebSocketUpgrade only lets authenticated admins through; events carry admin data.
func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	user, _ := c.Locals("user").(*utils.UserContext)
	if !user.IsAdmin() {
		return utils.UnauthorizedResponse(c, "Admin token required")
	}
	return c.Next()
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	user, _ := c.Locals("user").(*utils.UserContext)
	if user == nil {
		c.Close()
		return
	}

	logger.WebSocket("admin_connected", "Admin connected", map[string]interface{}{"user_id": user.ID.String()})

	h.manager.RegisterClient(c, user.ID, websocketManager.AdminRoom)
	defer h.manager.UnregisterClient(c)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logger.Debug(logger.CategoryWebSocket, "read_message", "WebSocket closed", map[string]interface{}{
				"user_id": user.ID.String(),
				"error":   err.Error(),
			})
			break
		}

		h.manager.HandleWebSocketMessage(c, messageType, message)
	}
}
