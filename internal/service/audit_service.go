package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/catalog-gate/internal/events"
	"github.com/spec-kit/catalog-gate/internal/observability"
)

// AuditService records session lifecycle events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to every session event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionIssued, a.handleIssued)
	a.dispatcher.Subscribe(events.EventSessionRevoked, a.handleRevoked)
	a.dispatcher.Subscribe(events.EventSessionPurged, a.handlePurged)
}

func (a *AuditService) handleIssued(_ context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.SessionIssuedPayload); ok {
		fields = append(fields, zap.Time("expires_at", payload.ExpiresAt))
	}
	a.logger.Info("SessionIssued", fields...)
	a.metrics.Inc(auditCounter(event.Type))
	return nil
}

func (a *AuditService) handleRevoked(_ context.Context, event events.Event) error {
	a.logger.Info("SessionRevoked", a.fields(event)...)
	a.metrics.Inc(auditCounter(event.Type))
	return nil
}

func (a *AuditService) handlePurged(_ context.Context, event events.Event) error {
	a.logger.Warn("SessionPurged", a.fields(event)...)
	a.metrics.Inc(auditCounter(event.Type))
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
		zap.String("reason", string(event.Reason)),
		zap.Time("at", event.Timestamp),
	}
}

func auditCounter(t events.EventType) string {
	return "audit_" + string(t)
}
