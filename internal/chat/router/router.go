package router

import (
	"context"
	"time"

	"betalift_service/internal/chat/app"
	"betalift_service/pkg/database"
	"betalift_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相关的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, minioClient database.MinIOClientRepo) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// 附件只給簽名下載連結, 上傳走獨立的媒體服務
	r.Get("/attachments/:object", func(c *fiber.Ctx) error {
		object := c.Params("object")
		exists, err := minioClient.ObjectExists(c.Context(), object)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if !exists {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "attachment not found"})
		}
		url, err := minioClient.PresignGetURL(c.Context(), object, 15*time.Minute)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"url": url})
	})
}
