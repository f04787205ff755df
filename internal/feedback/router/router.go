package router

import (
	"betalift_service/internal/feedback/app"
	"betalift_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册 feedback 相关的路由
func RegisterRoutes(r *fiber.App, handler *app.FeedbackHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Post("/projects", handler.CreateProject)
	r.Get("/projects", handler.ListProjects)
	r.Post("/projects/:id/join", handler.JoinProject)
	r.Post("/projects/:id/feedback", handler.SubmitFeedback)
	r.Get("/projects/:id/feedback", handler.ListFeedback)
}
