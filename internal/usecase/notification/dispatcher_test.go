package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
)

// --- Mocks ---

type mockSender struct {
	mu      sync.Mutex
	sent    []Message
	err     error
	block   chan struct{}
	panicky bool
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	if m.block != nil {
		<-m.block
	}
	if m.panicky {
		panic("smtp client exploded")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

func sampleMatches() []dommatch.Match {
	now := time.Now()
	return []dommatch.Match{
		dommatch.Reconstruct(1, 7, 1, 9.5, now, now),
		dommatch.Reconstruct(2, 7, 3, 5.5, now, now),
	}
}

func counter(status string) float64 {
	return testutil.ToFloat64(metrics.NotificationsTotal.WithLabelValues(status))
}

// --- Tests ---

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(7, "ops@example.com", sampleMatches())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "New Vendor Matches Found" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "We found 2 new vendors for your project!") {
		t.Errorf("body = %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "Vendor #1: score 9.50") {
		t.Errorf("body lacks match line: %q", msg.HTML)
	}
	if msg.To != "ops@example.com" || msg.ProjectID != 7 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestNewMessage_NoMatches(t *testing.T) {
	msg, err := NewMessage(7, "ops@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg.HTML, "We found 0 new vendors") {
		t.Errorf("body = %q", msg.HTML)
	}
	if strings.Contains(msg.HTML, "<ul>") {
		t.Error("empty match list should not render a list")
	}
}

func TestNotify_DoesNotBlockCaller(t *testing.T) {
	sender := &mockSender{block: make(chan struct{})}
	d := NewDispatcher(sender, "ops@example.com")

	done := make(chan struct{})
	go func() {
		d.Notify(context.Background(), 7, sampleMatches())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on delivery")
	}

	close(sender.block)
	d.Wait()
	if got := sender.messages(); len(got) != 1 || got[0].ProjectID != 7 {
		t.Errorf("sent = %+v", got)
	}
}

func TestNotify_SurvivesCallerCancellation(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, "")

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, 7, sampleMatches())
	cancel()
	d.Wait()

	got := sender.messages()
	if len(got) != 1 {
		t.Fatalf("sent %d messages, want 1", len(got))
	}
	if got[0].To != DefaultRecipient {
		t.Errorf("recipient = %q, want default", got[0].To)
	}
}

func TestNotify_SendErrorIsSwallowed(t *testing.T) {
	before := counter("failed")
	d := NewDispatcher(&mockSender{err: errors.New("550 mailbox unavailable")}, "ops@example.com")

	d.Notify(context.Background(), 7, sampleMatches())
	d.Wait()

	if got := counter("failed") - before; got != 1 {
		t.Errorf("failed notifications = %v, want 1", got)
	}
}

func TestNotify_SenderPanicIsRecovered(t *testing.T) {
	before := counter("failed")
	d := NewDispatcher(&mockSender{panicky: true}, "ops@example.com")

	d.Notify(context.Background(), 7, sampleMatches())
	d.Wait()

	if got := counter("failed") - before; got != 1 {
		t.Errorf("failed notifications = %v, want 1", got)
	}
}

func TestNotify_RateLimitDropsOnTimeout(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, "ops@example.com").
		WithRateLimit(0.001, 1).
		WithTimeout(50 * time.Millisecond)
	before := counter("dropped")

	d.Notify(context.Background(), 1, nil)
	d.Notify(context.Background(), 2, nil)
	d.Wait()

	if got := len(sender.messages()); got != 1 {
		t.Errorf("sent %d messages, want 1", got)
	}
	if got := counter("dropped") - before; got != 1 {
		t.Errorf("dropped notifications = %v, want 1", got)
	}
}

func TestNotify_Unlimited(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(sender, "ops@example.com").WithRateLimit(0, 0)

	for i := int64(1); i <= 20; i++ {
		d.Notify(context.Background(), i, nil)
	}
	d.Wait()

	if got := len(sender.messages()); got != 20 {
		t.Errorf("sent %d messages, want 20", got)
	}
}

func TestLogSender(t *testing.T) {
	msg, err := NewMessage(1, DefaultRecipient, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := (LogSender{}).Send(context.Background(), msg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
