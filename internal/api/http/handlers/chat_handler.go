package handlers

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/api/dto"
	"github.com/briefdesk/brief-service/internal/service"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// ChatHandler relays the interview model's event stream.
type ChatHandler struct {
	chat    *service.ChatService
	timeout time.Duration
	logger  *zap.Logger
}

// NewChatHandler constructs handler. timeout bounds one whole stream.
func NewChatHandler(chat *service.ChatService, timeout time.Duration, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ChatHandler{chat: chat, timeout: timeout, logger: logger}
}

// Chat POST /chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	// the body is written after the handler returns, so the upstream request
	// cannot hang off the request context
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	stream, err := h.chat.Stream(ctx, req.Messages, req.CurrentStep)
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()
		if err := relayEvents(w, stream); err != nil {
			h.logger.Info("chat stream ended early", zap.Error(err))
		}
	})
	return nil
}

// relayEvents copies the upstream stream to the client, flushing every read.
// A failed flush means the client went away.
func relayEvents(w *bufio.Writer, r io.Reader) error {
	buf := make([]byte, 4<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if ferr := w.Flush(); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
