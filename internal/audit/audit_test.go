package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) { <-s.gate }

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "login"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The first event is taken by the worker and blocks in the sink, the second fills the
	// buffer, everything after is dropped.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "token_refresh"})
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	close(sink.gate)
	d.Close()
}

func TestDispatcherCloseDrainsBuffer(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "order_created"})
	}
	if !d.Close() {
		t.Fatal("expected a full drain without a timeout")
	}

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
	if d.Delivered() != 5 {
		t.Fatalf("expected 5 delivered, got %d", d.Delivered())
	}
	if ev := <-sink.Events(); ev.Timestamp.IsZero() {
		t.Fatal("expected the dispatcher to stamp the timestamp")
	}
	d.Emit(context.Background(), Event{EventType: "late"})
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("emit after close must be ignored, got %d events", got)
	}
}

func TestDispatcherCloseGivesUpAfterDrainTimeout(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DrainTimeout: 20 * time.Millisecond}, sink)
	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), Event{EventType: "logout"})
	}
	time.Sleep(5 * time.Millisecond)

	start := time.Now()
	if d.Close() {
		t.Fatal("expected Close to report an incomplete drain")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Close waited %s", elapsed)
	}

	// The stuck event is delivered once released; the rest are abandoned.
	close(sink.gate)
	deadline := time.Now().Add(time.Second)
	for d.Delivered()+d.Dropped() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Delivered() != 1 || d.Dropped() != 3 {
		t.Fatalf("expected 1 delivered and 3 dropped, got %d and %d", d.Delivered(), d.Dropped())
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "login"})
	time.Sleep(5 * time.Millisecond)
	d.Emit(context.Background(), Event{EventType: "login"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "login"})
	if d.Dropped() != 1 {
		t.Fatalf("expected the cancelled emit to count as dropped, got %d", d.Dropped())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "login", UserID: "7", Success: true})
	sink.Emit(context.Background(), Event{EventType: "logout", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "login" || ev.UserID != "7" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSSinkPublishesPerEventType(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewPublisherSink(pub, "")
	sink.Emit(context.Background(), Event{EventType: "session_expired"})

	if len(pub.subjects) != 1 || pub.subjects[0] != "goshop.audit.session_expired" {
		t.Fatalf("unexpected subjects %v", pub.subjects)
	}
	var ev Event
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil || ev.EventType != "session_expired" {
		t.Fatalf("unexpected payload %s (err=%v)", pub.payloads[0], err)
	}
}

func TestNATSSinkCountsFailures(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	sink := NewPublisherSink(pub, "shop")
	sink.Emit(context.Background(), Event{EventType: "login"})
	sink.Emit(context.Background(), Event{EventType: "login"})
	if sink.Failed() != 2 {
		t.Fatalf("expected 2 failures, got %d", sink.Failed())
	}
}
