package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/briefdesk/brief-service/internal/api/dto"
	"github.com/briefdesk/brief-service/internal/service"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// EmailHandler exposes delivery status and manual resend for operators.
type EmailHandler struct {
	tracking *service.EmailTrackingService
	now      func() time.Time
}

// NewEmailHandler constructs handler.
func NewEmailHandler(tracking *service.EmailTrackingService) *EmailHandler {
	return &EmailHandler{tracking: tracking, now: time.Now}
}

// EmailStatus GET /email-status?conversationId=&period=&details=.
func (h *EmailHandler) EmailStatus(c *fiber.Ctx) error {
	if h.tracking == nil {
		return errDatabaseNotConfigured
	}

	if id := c.Query("conversationId"); id != "" {
		status, err := h.tracking.GetConversationStatus(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(dto.ConversationEmailStatusResponse{
			Conversation: dto.ConversationEmailStatus{
				ID:               status.ID,
				EmailStatus:      status.EmailStatus,
				EmailSentAt:      status.EmailSentAt,
				EmailMessageID:   status.EmailMessageID,
				EmailAttempts:    status.EmailAttempts,
				LastEmailAttempt: status.LastEmailAttempt,
				EmailError:       status.EmailError,
				Email:            status.Email,
			},
			Timestamp: h.now().UTC(),
		})
	}

	period := parseIntQuery(c, "period", service.DefaultStatsPeriodDays)
	if period <= 0 {
		return apperrors.NewValidationError("period must be a positive number of days", nil)
	}
	report, err := h.tracking.GetStats(c.UserContext(), period, c.Query("details") == "true")
	if err != nil {
		return err
	}
	return c.JSON(emailStatsResponse(report))
}

// RetryEmail POST /retry-email.
func (h *EmailHandler) RetryEmail(c *fiber.Ctx) error {
	if h.tracking == nil {
		return errDatabaseNotConfigured
	}
	var req dto.RetryEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.tracking.RetryEmail(c.UserContext(), req.ConversationID)
	if err != nil {
		return err
	}
	resp := dto.RetryEmailResponse{
		Success:        result.Success,
		ConversationID: result.ConversationID,
		EmailStatus:    result.EmailStatus,
		EmailMessageID: result.EmailMessageID,
		EmailError:     result.EmailError,
		Message:        result.Message,
	}
	if result.EmailError != "" {
		attempts := result.EmailAttempts
		resp.EmailAttempts = &attempts
	}
	return c.JSON(resp)
}

func emailStatsResponse(report *service.EmailStatsReport) dto.EmailStatsResponse {
	stats := report.Stats
	resp := dto.EmailStatsResponse{
		Period:      fmt.Sprintf("%d days", report.PeriodDays),
		PeriodStart: report.PeriodStart,
		Timestamp:   report.GeneratedAt,
		Stats: dto.EmailStats{
			Total:           stats.Total,
			Successful:      stats.Successful,
			Failed:          stats.Failed,
			Pending:         stats.Pending,
			RetryAttempts:   stats.RetryAttempts,
			AverageAttempts: stats.AverageAttempts,
			SuccessRate:     stats.SuccessRate,
			CommonErrors:    stats.CommonErrors,
			RecentFailures:  make([]dto.FailureSummary, 0, len(stats.RecentFailures)),
		},
	}
	for _, f := range stats.RecentFailures {
		resp.Stats.RecentFailures = append(resp.Stats.RecentFailures, dto.FailureSummary{
			ConversationID: f.ConversationID,
			RecipientEmail: f.RecipientEmail,
			Error:          f.Error,
			LastAttempt:    f.LastAttempt,
			Attempts:       f.Attempts,
		})
	}
	if report.Details != nil {
		resp.Details = make([]dto.EmailActivity, 0, len(report.Details))
		for _, d := range report.Details {
			resp.Details = append(resp.Details, dto.EmailActivity{
				ConversationID: d.ConversationID,
				RecipientEmail: d.RecipientEmail,
				Status:         d.Status,
				SentAt:         d.SentAt,
				Attempts:       d.Attempts,
				LastAttempt:    d.LastAttempt,
				Error:          d.Error,
			})
		}
	}
	return resp
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return -1
	}
	return parsed
}
