package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers the notification handlers and, when a
// forwarder is configured, mirrors every lifecycle event onto NATS.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher, forwarder *events.NATSForwarder) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if forwarder != nil && dispatcher != nil {
		forwarder.Register(dispatcher)
	}
}
