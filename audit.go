package goShop

import (
	"context"
	"io"

	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/nats-io/nats.go"
)

// Audit event types emitted by the client.
const (
	AuditLogin              = "login"
	AuditRegister           = "register"
	AuditLogout             = "logout"
	AuditTokenRefresh       = "token_refresh"
	AuditSessionExpired     = "session_expired"
	AuditOrderCreated       = "order_created"
	AuditOrderStatusUpdated = "order_status_updated"
)

type (
	// AuditEvent is one audit record.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the client's dispatcher goroutine.
	AuditSink = audit.Sink
	NoOpSink  = audit.NoOpSink
	// ChannelSink buffers events in a channel, mostly for tests.
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	NATSSink       = audit.NATSSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewNATSAuditSink publishes events on "<subject>.<event_type>" through conn. An empty
// subject means "goshop.audit".
func NewNATSAuditSink(conn *nats.Conn, subject string) *NATSSink {
	return audit.NewNATSSink(conn, subject)
}

func (c *Client) emitAudit(ctx context.Context, eventType, userID string, success bool, err error, metadata map[string]string) {
	if c.audit == nil {
		return
	}
	ev := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.audit.Emit(ctx, ev)
}
