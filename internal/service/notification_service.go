package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/events"
)

// Broadcaster forwards serialized events to an external channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, body []byte) error
}

// NotificationService fans ticket events out to email, webhook and pub/sub sinks.
type NotificationService struct {
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	cfg         config.NotificationConfig
	broadcaster Broadcaster
}

// NewNotificationService creates the service. broadcaster may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, broadcaster Broadcaster) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  dispatcher,
		logger:      logger,
		cfg:         cfg,
		broadcaster: broadcaster,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStateChanged, n.handleTicketStateChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketWorkNoteAdded, n.handleWorkNoteAdded)
	n.dispatcher.Subscribe(events.EventTicketApproval, n.handleApprovalChanged)
	n.dispatcher.Subscribe(events.EventMaintenanceDue, n.handleMaintenanceDue)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("kind", string(event.Kind)), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleTicketStateChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStateChanged", zap.String("kind", string(event.Kind)), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("kind", string(event.Kind)), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return n.broadcast(ctx, event)
}

// handleWorkNoteAdded only emails public notes.
func (n *NotificationService) handleWorkNoteAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketWorkNoteAdded", zap.String("kind", string(event.Kind)), zap.String("ticket_id", event.TicketID))
	if payload, ok := event.Payload.(events.TicketWorkNoteAddedPayload); ok && payload.IsPublic {
		n.sendEmailNotificationStub(ctx, event)
	}
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleApprovalChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketApprovalChanged", zap.String("kind", string(event.Kind)), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleMaintenanceDue(ctx context.Context, event events.Event) error {
	n.logger.Info("MaintenanceDue", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return n.broadcast(ctx, event)
}

func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	channel := strings.TrimSpace(n.cfg.RedisChannel)
	if n.broadcaster == nil || channel == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.broadcaster.Broadcast(ctx, channel, body)
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
