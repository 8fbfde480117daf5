package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/calendar"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/metrics"
)

// Sender delivers one assignment notification.
type Sender interface {
	Send(ctx context.Context, payload AssignmentPayload) error
}

// Config contains dispatcher configuration.
type Config struct {
	WorkerCount int
	SendTimeout time.Duration
}

// Dispatcher queues assignment notifications and delivers them from a pool
// of background workers. Delivery is best effort: enqueueing never blocks
// the calling operation and a full queue drops the notification.
type Dispatcher struct {
	sender      Sender
	tasks       chan AssignmentPayload
	workerCount int
	sendTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
	stopOnce    sync.Once
	stopChan    chan struct{}
}

var _ calendar.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Start must be called before
// notifications are delivered.
func NewDispatcher(sender Sender, cfg Config, log zerolog.Logger) *Dispatcher {
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		sender:      sender,
		tasks:       make(chan AssignmentPayload, 64),
		workerCount: workers,
		sendTimeout: cfg.SendTimeout,
		log:         log.With().Str("component", "notify-dispatcher").Logger(),
		stopChan:    make(chan struct{}),
	}
}

// EventAssigned queues a notification for the accounts newly assigned to the
// event. It returns immediately.
func (d *Dispatcher) EventAssigned(ctx context.Context, event *calendar.Event, accountIDs []uint) {
	if len(accountIDs) == 0 {
		return
	}
	now := time.Now()
	payload := AssignmentPayload{
		Event:       "calendar.event_assigned",
		EventID:     event.ID,
		Title:       event.Title,
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		AssigneeIDs: accountIDs,
		AssignedAt:  &now,
	}
	select {
	case d.tasks <- payload:
	default:
		d.log.Warn().Uint("event_id", event.ID).Msg("notification queue full, dropping")
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info().Int("worker_count", d.workerCount).Msg("starting notification workers")
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.work(ctx, id)
		}(i + 1)
	}
}

// Stop drains in-flight deliveries and shuts the workers down.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("notification workers stopped")
	case <-time.After(30 * time.Second):
		d.log.Warn().Msg("notification worker shutdown timed out")
	}
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	log := d.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("notification worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("notification worker stopped by context")
			return
		case <-d.stopChan:
			log.Debug().Msg("notification worker stopped")
			return
		case payload := <-d.tasks:
			d.deliver(ctx, log, payload)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, log zerolog.Logger, payload AssignmentPayload) {
	sendCtx := ctx
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}
	if err := d.sender.Send(sendCtx, payload); err != nil {
		metrics.RecordNotification("failed")
		log.Error().Err(err).Uint("event_id", payload.EventID).Msg("notification delivery failed")
		return
	}
	metrics.RecordNotification("delivered")
}
