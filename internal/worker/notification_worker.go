package worker

import (
	"go.uber.org/zap"

	"github.com/jb-platform/maintenance-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to workflow
// events so committed steps are delivered to tenants, contractors and the PM
// inbox.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification service not configured; workflow messages will not be sent")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}
