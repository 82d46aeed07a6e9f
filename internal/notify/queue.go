package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

// QueuedNotification is a webhook delivery waiting for another attempt.
type QueuedNotification struct {
	ID          string          `json:"id"`
	WebhookName string          `json:"webhook_name"`
	URL         string          `json:"url"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
	NextRetry   time.Time       `json:"next_retry"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"max_retries"`
	LastError   string          `json:"last_error,omitempty"`
}

// RetryQueue re-sends failed webhook deliveries on a backoff schedule.
type RetryQueue struct {
	mu       sync.RWMutex
	queue    []*QueuedNotification
	client   *HTTPClient
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	interval time.Duration
	backoff  []time.Duration

	totalQueued int
	totalSent   int
	totalFailed int
}

// NewRetryQueue creates a queue using config.Global.RetryQueue.
func NewRetryQueue(client *HTTPClient) *RetryQueue {
	cfg := config.Global.RetryQueue
	return &RetryQueue{
		client:   client,
		interval: cfg.CheckInterval,
		backoff:  cfg.BackoffSchedule,
	}
}

// Start processes the queue in the background until Stop or ctx is done.
func (q *RetryQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	q.wg.Add(1)
	go q.processLoop(ctx)
}

// Stop stops the background processor.
func (q *RetryQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	cancel := q.cancel
	q.mu.Unlock()

	cancel()
	q.wg.Wait()
}

// Enqueue schedules n for its first retry. err is the failure that queued it.
func (q *RetryQueue) Enqueue(n QueuedNotification, err error) {
	now := time.Now()
	n.CreatedAt = now
	n.NextRetry = now.Add(q.backoffFor(0))
	n.Attempts = 0
	if err != nil {
		n.LastError = err.Error()
	}

	q.mu.Lock()
	q.queue = append(q.queue, &n)
	q.totalQueued++
	size := len(q.queue)
	q.mu.Unlock()

	logging.Info("notification queued for retry",
		logging.KeyWebhook, n.WebhookName,
		"queue_size", size,
		logging.KeyError, err)
}

func (q *RetryQueue) processLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.processQueue(ctx, time.Now())
		}
	}
}

// processQueue sends every notification due at or before now.
func (q *RetryQueue) processQueue(ctx context.Context, now time.Time) {
	q.mu.Lock()
	var ready, remaining []*QueuedNotification
	for _, n := range q.queue {
		if !n.NextRetry.After(now) {
			ready = append(ready, n)
		} else {
			remaining = append(remaining, n)
		}
	}
	q.queue = remaining
	q.mu.Unlock()

	for _, n := range ready {
		q.processNotification(ctx, n)
	}
}

func (q *RetryQueue) processNotification(ctx context.Context, n *QueuedNotification) {
	n.Attempts++
	result := q.client.Send(ctx, n.URL, n.ContentType, n.Body)

	if result.Error == nil {
		q.mu.Lock()
		q.totalSent++
		q.mu.Unlock()
		logging.Info("queued notification sent",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts,
			logging.KeyDuration, result.Duration.Milliseconds())
		return
	}

	n.LastError = result.Error.Error()
	if n.Attempts >= n.MaxRetries || !result.Retryable() {
		q.mu.Lock()
		q.totalFailed++
		q.mu.Unlock()
		logging.Warn("notification failed after retries",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts,
			logging.KeyError, result.Error)
		return
	}

	n.NextRetry = time.Now().Add(q.backoffFor(n.Attempts))
	q.mu.Lock()
	q.queue = append(q.queue, n)
	q.mu.Unlock()
}

func (q *RetryQueue) backoffFor(attempt int) time.Duration {
	if len(q.backoff) == 0 {
		return 0
	}
	if attempt >= len(q.backoff) {
		return q.backoff[len(q.backoff)-1]
	}
	return q.backoff[attempt]
}

// QueueStats reports queue counters.
type QueueStats struct {
	QueueSize   int `json:"queue_size"`
	TotalQueued int `json:"total_queued"`
	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`
}

// Stats returns current queue statistics.
func (q *RetryQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return QueueStats{
		QueueSize:   len(q.queue),
		TotalQueued: q.totalQueued,
		TotalSent:   q.totalSent,
		TotalFailed: q.totalFailed,
	}
}

// Pending returns the number of queued notifications.
func (q *RetryQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queue)
}

// Clear drops all queued notifications.
func (q *RetryQueue) Clear() {
	q.mu.Lock()
	q.queue = nil
	q.mu.Unlock()
}
