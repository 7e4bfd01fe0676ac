package goShop

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func collect(t *testing.T, c *Client, sink *ChannelSink) []AuditEvent {
	t.Helper()
	c.Close()
	var out []AuditEvent
	for ev := range drain(sink) {
		out = append(out, ev)
	}
	return out
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	backend := &tokenBackend{valid: "B", next: "B", refreshFails: true}
	c, _ := newTestClient(t, backend, func(b *Builder) {
		b.WithAuditSink(sink)
		b.config.Audit.Enabled = false
	})
	signIn(t, c, "A", "R")

	_, _ = c.Profile(context.Background())
	c.Close()
	if n := sink.count.Load(); n != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", n)
	}
}

func TestAuditRefreshFailureEvents(t *testing.T) {
	sink := NewChannelSink(16)
	backend := &tokenBackend{valid: "B", next: "B", refreshFails: true}
	c, _ := newTestClient(t, backend, func(b *Builder) { b.WithAuditSink(sink) })
	signIn(t, c, "A", "R")

	ctx := WithRequestID(context.Background(), "req-7")
	_, _ = c.Profile(ctx)

	events := collect(t, c, sink)
	var types []string
	for _, ev := range events {
		types = append(types, ev.EventType)
		if ev.Success {
			t.Fatalf("expected failure events only, got %+v", ev)
		}
		if ev.RequestID != "req-7" {
			t.Fatalf("expected the caller's request id, got %q", ev.RequestID)
		}
		if ev.Error == "" {
			t.Fatalf("expected an error on %s", ev.EventType)
		}
	}
	if strings.Join(types, ",") != AuditTokenRefresh+","+AuditSessionExpired {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestAuditLoginNeverCarriesPassword(t *testing.T) {
	sink := NewChannelSink(16)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	})
	c, _ := newTestClient(t, h, func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = c.Login(context.Background(), LoginRequest{Username: "alice", Password: "super-secret-password"})

	events := collect(t, c, sink)
	if len(events) != 1 || events[0].EventType != AuditLogin || events[0].Success {
		t.Fatalf("expected one failed login event, got %+v", events)
	}
	raw, _ := json.Marshal(events[0])
	if bytes.Contains(raw, []byte("super-secret-password")) {
		t.Fatalf("password leaked into audit event: %s", raw)
	}
}

func TestAuditJSONWriterSinkThroughClient(t *testing.T) {
	var buf bytes.Buffer
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	c, _ := newTestClient(t, h, func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })
	signIn(t, c, "A", "R")

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	c.Close()

	var ev AuditEvent
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("decode audit line %q: %v", buf.String(), err)
	}
	if ev.EventType != AuditLogout || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
}
