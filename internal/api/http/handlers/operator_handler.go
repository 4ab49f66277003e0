package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/briefdesk/brief-service/internal/api/dto"
	"github.com/briefdesk/brief-service/internal/service"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// OperatorHandler exposes operator login and pipeline updates.
type OperatorHandler struct {
	operators     *service.OperatorService
	conversations *service.ConversationService
}

// NewOperatorHandler constructs handler.
func NewOperatorHandler(operators *service.OperatorService, conversations *service.ConversationService) *OperatorHandler {
	return &OperatorHandler{operators: operators, conversations: conversations}
}

// Login POST /operator/login.
func (h *OperatorHandler) Login(c *fiber.Ctx) error {
	var req dto.OperatorLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	token, exp, err := h.operators.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// UpdateStatus PATCH /conversations/:id/status.
func (h *OperatorHandler) UpdateStatus(c *fiber.Ctx) error {
	if h.conversations == nil {
		return errDatabaseNotConfigured
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	conv, err := h.conversations.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conv)})
}
