package app

import (
	"strconv"

	"betalift_service/internal/feedback/domain"
	"betalift_service/pkg/logger"
	"betalift_service/pkg/middlewares"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

// CreateProjectReq 建立專案的請求
type CreateProjectReq struct {
	Name        string `json:"name" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=2000"`
	AccessCode  string `json:"access_code" validate:"required,min=6,max=64"`
}

// JoinProjectReq 加入專案的請求
type JoinProjectReq struct {
	AccessCode string `json:"access_code" validate:"required"`
}

// SubmitFeedbackReq 送出回饋的請求
type SubmitFeedbackReq struct {
	Kind  string `json:"kind" validate:"required,oneof=bug feature praise"`
	Title string `json:"title" validate:"required,min=1,max=256"`
	Body  string `json:"body" validate:"max=10000"`
}

// FeedbackHandler fiber handler
type FeedbackHandler struct {
	uc *FeedbackUseCase
}

// NewFeedbackHandler create FeedbackHandler
func NewFeedbackHandler(uc *FeedbackUseCase) *FeedbackHandler {
	return &FeedbackHandler{uc: uc}
}

func userID(c *fiber.Ctx) string {
	v, _ := c.Locals(middlewares.TokenUserID).(string)
	return v
}

// CreateProject POST /projects
func (h *FeedbackHandler) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	project, err := h.uc.CreateProject(userID(c), req.Name, req.Description, req.AccessCode)
	if err != nil {
		logger.Log.Error("create project err", zap.String("err", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// ListProjects GET /projects
func (h *FeedbackHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.uc.ListProjects(userID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(projects)
}

// JoinProject POST /projects/:id/join
func (h *FeedbackHandler) JoinProject(c *fiber.Ctx) error {
	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}

	var req JoinProjectReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.uc.JoinProject(uint(projectID), userID(c), req.AccessCode); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"joined": true})
}

// SubmitFeedback POST /projects/:id/feedback
func (h *FeedbackHandler) SubmitFeedback(c *fiber.Ctx) error {
	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}

	var req SubmitFeedbackReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	fb, err := h.uc.SubmitFeedback(uint(projectID), userID(c), domain.FeedbackKind(req.Kind), req.Title, req.Body)
	if err != nil {
		logger.Log.Error("submit feedback err", zap.String("err", err.Error()))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fb)
}

// ListFeedback GET /projects/:id/feedback?kind=bug
func (h *FeedbackHandler) ListFeedback(c *fiber.Ctx) error {
	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}

	fbs, err := h.uc.ListFeedback(uint(projectID), userID(c), domain.FeedbackKind(c.Query("kind")))
	if err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fbs)
}
