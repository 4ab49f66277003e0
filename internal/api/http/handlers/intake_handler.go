package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/briefdesk/brief-service/internal/api/dto"
	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/parser"
	"github.com/briefdesk/brief-service/internal/service"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

var errDatabaseNotConfigured = apperrors.NewServiceUnavailable("Database not configured")

// IntakeHandler exposes conversation creation and the save pipeline.
// Services are nil when no database is configured.
type IntakeHandler struct {
	intake        *service.IntakeService
	conversations *service.ConversationService
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(intake *service.IntakeService, conversations *service.ConversationService) *IntakeHandler {
	return &IntakeHandler{intake: intake, conversations: conversations}
}

// SaveConversation POST /save-conversation.
func (h *IntakeHandler) SaveConversation(c *fiber.Ctx) error {
	if h.intake == nil {
		return errDatabaseNotConfigured
	}
	var req dto.SaveConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.intake.SaveConversation(c.UserContext(), service.SaveInput{
		ConversationID: req.ConversationID,
		Messages:       req.Messages,
		ContactInfo:    req.ContactInfo,
		Brief:          req.Brief,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.SaveConversationResponse{
		Success:        result.Success,
		ConversationID: result.ConversationID,
		BriefID:        result.BriefID,
		EmailStatus:    result.EmailStatus,
		EmailMessageID: result.EmailMessageID,
		EmailError:     result.EmailError,
		Message:        result.Message,
	})
}

// CreateConversation POST /conversations.
func (h *IntakeHandler) CreateConversation(c *fiber.Ctx) error {
	if h.conversations == nil {
		return errDatabaseNotConfigured
	}
	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Language != "" && req.Language != domain.LanguageEnglish && req.Language != domain.LanguageThai {
		return apperrors.NewValidationError("language must be en or th", nil)
	}

	conv, err := h.conversations.CreateConversation(c.UserContext(), req.Messages, req.Language)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": conversationResponse(conv)})
}

// PreviewBrief POST /brief/preview.
func (h *IntakeHandler) PreviewBrief(c *fiber.Ctx) error {
	var req dto.BriefPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !parser.IsBriefContent(req.Content) {
		return c.JSON(dto.BriefPreviewResponse{IsBrief: false})
	}
	brief := parser.ParseBrief(req.Content)
	if brief == nil {
		brief = parser.ParseLegacyBrief(req.Content)
	}
	return c.JSON(dto.BriefPreviewResponse{IsBrief: true, Brief: brief})
}

func conversationResponse(conv *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ConversationID: conv.ID,
		Status:         conv.Status,
		Language:       conv.Language,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}
}
