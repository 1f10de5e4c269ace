package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	"github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRate    = 5
	defaultBurst   = 10
)

// Dispatcher sends match notifications in background goroutines.
// Callers never wait on delivery and never see its errors.
type Dispatcher struct {
	sender    Sender
	recipient string
	limiter   *rate.Limiter
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher delivering to recipient through sender.
func NewDispatcher(sender Sender, recipient string) *Dispatcher {
	if recipient == "" {
		recipient = DefaultRecipient
	}
	return &Dispatcher{
		sender:    sender,
		recipient: recipient,
		limiter:   rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
		timeout:   defaultTimeout,
	}
}

// WithRateLimit caps outbound sends. perSec <= 0 removes the limit.
func (d *Dispatcher) WithRateLimit(perSec float64, burst int) *Dispatcher {
	if perSec <= 0 {
		d.limiter = rate.NewLimiter(rate.Inf, 0)
		return d
	}
	if burst < 1 {
		burst = 1
	}
	d.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	return d
}

// WithTimeout bounds one send, including time spent waiting for the rate limiter.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Notify schedules a notification for projectID and returns immediately.
// The send outlives ctx cancellation but keeps its logger.
func (d *Dispatcher) Notify(ctx context.Context, projectID int64, matches []dommatch.Match) {
	log := logger.FromContext(ctx).With(zap.Int64("project_id", projectID))

	msg, err := NewMessage(projectID, d.recipient, matches)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.Error("Notification render failed", zap.Error(err))
		return
	}

	sendCtx := logger.ContextWithLogger(context.WithoutCancel(ctx), log)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(sendCtx, msg); err != nil {
			log.Error("Notification failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every scheduled notification has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		}
	}()

	if err := d.limiter.Wait(ctx); err != nil {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("rate limit: %w", err)
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("send: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}
