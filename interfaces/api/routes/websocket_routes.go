package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	websocketManager "smart-gallery/infrastructure/websocket"
	"smart-gallery/interfaces/api/middleware"
	websocketHandler "smart-gallery/interfaces/api/websocket"
)

func SetupWebSocketRoutes(app *fiber.App, secret string) {
	wsHandler := websocketHandler.NewWebSocketHandler(websocketManager.Manager)

	// Browsers can't set headers on WS connections, so ?token= is accepted too
	app.Use("/ws", middleware.OptionalWithQueryToken(secret), wsHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))
}
