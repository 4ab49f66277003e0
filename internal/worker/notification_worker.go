package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/events"
	"github.com/briefdesk/brief-service/internal/service"
)

// StartNotificationWorker registers the intake event handlers and closes the
// broker connection once ctx is done. The returned channel is closed after
// the broker has been released.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, broker events.Broker, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	go func() {
		defer close(done)
		<-ctx.Done()
		if broker == nil {
			return
		}
		if err := broker.Close(); err != nil && logger != nil {
			logger.Warn("close event broker", zap.Error(err))
		}
	}()
	return done
}
