// Package notifier fans committed transactions out to live subscribers.
// Delivery is best effort: a slow or broken subscriber can cost itself its
// registration, but it can never fail or delay the transaction that triggered
// the notification.
package notifier

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finvault/ledgerd/internal/core/domain"
)

// Event is a single message pushed to a subscriber.
type Event struct {
	Type          string `json:"type"`
	Message       string `json:"message,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Data          any    `json:"data,omitempty"`
}

const (
	// EventConnected acknowledges a new subscription.
	EventConnected = "connected"
	// EventTransaction carries a committed ledger transaction.
	EventTransaction = "transaction"
)

// Subscriber is a live delivery target, typically a websocket connection.
// Send must be safe for concurrent use.
type Subscriber interface {
	Send(ctx context.Context, event Event) error
}

// Stats are the hub's delivery counters.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

type broadcastJob struct {
	accountNumber string
	event         Event
}

// Hub maintains per-account subscriber sets and delivers committed
// transactions to them through a bounded work queue. It is an explicit
// instance owned by the composition root, not a package singleton.
type Hub struct {
	logger          *slog.Logger
	deliveryTimeout time.Duration

	// mu guards the subscriber registry and the closed/enqueue pair, so a
	// broadcast can never send on a queue a concurrent Close just closed.
	mu          sync.Mutex
	subscribers map[string]map[Subscriber]struct{}
	closed      bool

	queue chan broadcastJob
	wg    sync.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

type hubConfig struct {
	queueSize       int
	workers         int
	deliveryTimeout time.Duration
}

// WithQueueSize sets the broadcast queue capacity.
func WithQueueSize(n int) HubOption {
	return func(c *hubConfig) { c.queueSize = n }
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) HubOption {
	return func(c *hubConfig) { c.workers = n }
}

// WithDeliveryTimeout bounds how long a single subscriber delivery may take.
func WithDeliveryTimeout(d time.Duration) HubOption {
	return func(c *hubConfig) { c.deliveryTimeout = d }
}

// NewHub creates a hub and starts its delivery workers.
func NewHub(logger *slog.Logger, options ...HubOption) *Hub {
	cfg := hubConfig{
		queueSize:       256,
		workers:         4,
		deliveryTimeout: 5 * time.Second,
	}
	for _, option := range options {
		option(&cfg)
	}

	h := &Hub{
		logger:          logger,
		deliveryTimeout: cfg.deliveryTimeout,
		subscribers:     make(map[string]map[Subscriber]struct{}),
		queue:           make(chan broadcastJob, cfg.queueSize),
	}

	h.wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go h.worker()
	}
	return h
}

// Subscribe registers sub under accountNumber and sends it a connected
// acknowledgment. Only the new subscriber receives the acknowledgment.
func (h *Hub) Subscribe(accountNumber string, sub Subscriber) {
	h.mu.Lock()
	set, ok := h.subscribers[accountNumber]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.subscribers[accountNumber] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.deliveryTimeout)
	defer cancel()
	err := sub.Send(ctx, Event{
		Type:          EventConnected,
		Message:       "Connected to transaction updates for account " + accountNumber,
		AccountNumber: accountNumber,
	})
	if err != nil {
		h.logger.Warn("Failed to send subscription acknowledgment",
			slog.String("account_number", accountNumber),
			slog.String("error", err.Error()))
	}
}

// Unsubscribe removes sub from the account's set. The set entry itself is
// removed once empty so the registry never accumulates dead accounts.
func (h *Hub) Unsubscribe(accountNumber string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[accountNumber]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, accountNumber)
	}
}

// Broadcast enqueues a committed transaction for delivery to the account's
// subscribers and returns immediately. A full queue drops the event; the drop
// is logged and counted but never surfaced to the caller.
func (h *Hub) Broadcast(accountNumber string, txn domain.Transaction) {
	job := broadcastJob{
		accountNumber: accountNumber,
		event: Event{
			Type: EventTransaction,
			Data: txn,
		},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- job:
	default:
		h.dropped.Add(1)
		h.logger.Error("Notification queue full, dropping transaction event",
			slog.String("account_number", accountNumber),
			slog.Int64("transaction_id", txn.TransactionID))
	}
}

// CountFor returns the number of live subscribers for an account.
func (h *Hub) CountFor(accountNumber string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[accountNumber])
}

// CountTotal returns the number of live subscribers across all accounts.
func (h *Hub) CountTotal() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, set := range h.subscribers {
		total += len(set)
	}
	return total
}

// Stats returns the hub's delivery counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Delivered: h.delivered.Load(),
		Failed:    h.failed.Load(),
		Dropped:   h.dropped.Load(),
	}
}

// Close stops accepting broadcasts and waits for in-flight deliveries. Safe to
// call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) worker() {
	defer h.wg.Done()
	for job := range h.queue {
		h.deliver(job)
	}
}

// deliver snapshots the subscriber set under the lock, then releases it before
// any I/O so deliveries never block subscribe/unsubscribe or the transaction
// path. A subscriber whose Send fails is pruned, not retried.
func (h *Hub) deliver(job broadcastJob) {
	h.mu.Lock()
	set := h.subscribers[job.accountNumber]
	if len(set) == 0 {
		h.mu.Unlock()
		return
	}
	targets := make([]Subscriber, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), h.deliveryTimeout)
		err := sub.Send(ctx, job.event)
		cancel()
		if err != nil {
			h.failed.Add(1)
			h.logger.Warn("Subscriber delivery failed, pruning",
				slog.String("account_number", job.accountNumber),
				slog.String("error", err.Error()))
			h.Unsubscribe(job.accountNumber, sub)
			continue
		}
		h.delivered.Add(1)
	}
}
