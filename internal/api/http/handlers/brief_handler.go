package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/api/dto"
	"github.com/briefdesk/brief-service/internal/email"
	"github.com/briefdesk/brief-service/internal/service"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// BriefHandler serves completed briefs by link.
type BriefHandler struct {
	conversations *service.ConversationService
	renderer      *email.Renderer
	logger        *zap.Logger
}

// NewBriefHandler constructs handler.
func NewBriefHandler(conversations *service.ConversationService, renderer *email.Renderer, logger *zap.Logger) *BriefHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BriefHandler{conversations: conversations, renderer: renderer, logger: logger}
}

// GetBrief GET /brief/:id.
func (h *BriefHandler) GetBrief(c *fiber.Ctx) error {
	if h.conversations == nil {
		return errDatabaseNotConfigured
	}
	id := c.Params("id")
	if id == "" {
		return apperrors.NewValidationError("Brief ID is required", nil)
	}

	conv, err := h.conversations.GetPublicBrief(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.BriefResponse{
		Brief:       *conv.Brief,
		ProjectType: conv.ProjectType,
		CreatedAt:   conv.CompletedAt,
		Company:     conv.Brief.Company,
	})
}

// GetBriefHTML GET /brief/:id/html renders the brief page and marks it viewed.
func (h *BriefHandler) GetBriefHTML(c *fiber.Ctx) error {
	if h.conversations == nil {
		return errDatabaseNotConfigured
	}
	conv, err := h.conversations.GetPublicBrief(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	page, err := h.renderer.Page(*conv.Brief, conv.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := h.conversations.MarkBriefViewed(c.UserContext(), conv.ID); err != nil {
		h.logger.Warn("mark brief viewed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}
