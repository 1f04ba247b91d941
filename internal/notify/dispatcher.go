package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const sendTimeout = 15 * time.Second

// Dispatcher delivers messages on a fixed pool of workers reading from a
// bounded queue. A full queue drops messages instead of blocking callers.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	workers  int
	jobCh    chan Message
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// Stats is a snapshot of delivery counters.
type Stats struct {
	Workers int   `json:"workers"`
	Running bool  `json:"running"`
	Queued  int   `json:"queued"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

func NewDispatcher(notifier Notifier, logger *slog.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		workers:  workers,
		jobCh:    make(chan Message, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.logger.Info("notification dispatcher started", "workers", d.workers)
}

// Stop stops accepting messages, drains the queue and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.jobCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()

	d.logger.Info("notification dispatcher stopped",
		"sent", d.sent.Load(),
		"failed", d.failed.Load(),
		"dropped", d.dropped.Load(),
	)
}

// Enqueue schedules msg for delivery. It returns false when the dispatcher is
// stopped or the queue is full.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.jobCh <- msg:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping message",
			"template", msg.Template,
			"to", msg.ToEmail,
		)
		return false
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for msg := range d.jobCh {
		d.deliver(id, msg)
	}
}

func (d *Dispatcher) deliver(worker int, msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, sendTimeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error("failed to send notification",
			"worker", worker,
			"template", msg.Template,
			"to", msg.ToEmail,
			"error", err,
		)
		return
	}

	d.sent.Add(1)
	d.logger.Debug("notification sent", "worker", worker, "template", msg.Template, "to", msg.ToEmail)
}

func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		Workers: d.workers,
		Running: d.running,
		Queued:  len(d.jobCh),
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
