package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// WebhookStore is the part of storage.WebhookRepo the dispatcher needs.
type WebhookStore interface {
	ListEnabled() ([]*model.Webhook, error)
	Get(name string) (*model.Webhook, error)
	UpdateLastUsed(name string, lastErr error) error
}

// PreferenceStore returns the per-type relay preferences.
type PreferenceStore interface {
	Get() (*model.NotifyConfig, error)
}

// Dispatcher sends notifications to all enabled webhooks.
type Dispatcher struct {
	webhooks WebhookStore
	prefs    PreferenceStore
	client   *HTTPClient
	queue    *RetryQueue
}

// NewDispatcher creates a dispatcher. prefs may be nil, in which case every
// type is relayed.
func NewDispatcher(webhooks WebhookStore, prefs PreferenceStore) *Dispatcher {
	return &Dispatcher{
		webhooks: webhooks,
		prefs:    prefs,
		client:   NewHTTPClient(),
	}
}

// WithClient replaces the HTTP client.
func (d *Dispatcher) WithClient(c *HTTPClient) *Dispatcher {
	d.client = c
	return d
}

// WithQueue makes failed retryable deliveries go to q.
func (d *Dispatcher) WithQueue(q *RetryQueue) *Dispatcher {
	d.queue = q
	return d
}

// Queue returns the retry queue, if any.
func (d *Dispatcher) Queue() *RetryQueue {
	return d.queue
}

// DispatchResult is the outcome for one webhook.
type DispatchResult struct {
	WebhookName string        `json:"webhook"`
	Success     bool          `json:"success"`
	StatusCode  int           `json:"status_code,omitempty"`
	Duration    time.Duration `json:"duration"`
	Queued      bool          `json:"queued,omitempty"`
	Error       error         `json:"-"`
}

// Enabled reports whether notifications of type t are relayed.
func (d *Dispatcher) Enabled(t model.NotificationType) bool {
	if d.prefs == nil {
		return true
	}
	cfg, err := d.prefs.Get()
	if err != nil {
		logging.Warn("could not read notification preferences", logging.KeyError, err)
		return true
	}
	return cfg.IsTypeEnabled(t)
}

// SendNotification relays n to every enabled webhook concurrently. Types the
// user switched off are skipped and return no results.
func (d *Dispatcher) SendNotification(ctx context.Context, n *model.Notification) []DispatchResult {
	if !d.Enabled(n.Type) {
		logging.DebugLog("notification type disabled", "type", n.Type)
		return nil
	}

	webhooks, err := d.webhooks.ListEnabled()
	if err != nil {
		return []DispatchResult{{
			WebhookName: "all",
			Error:       fmt.Errorf("failed to list webhooks: %w", err),
		}}
	}
	if len(webhooks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	results := make([]DispatchResult, len(webhooks))
	for i, wh := range webhooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.send(ctx, n, wh)
		}()
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) send(ctx context.Context, n *model.Notification, wh *model.Webhook) DispatchResult {
	result := DispatchResult{WebhookName: wh.Name}
	formatter := FormatterFor(wh)

	payload, err := formatter.Format(n)
	if err != nil {
		result.Error = fmt.Errorf("failed to format notification: %w", err)
		d.recordUse(wh.Name, result.Error)
		return result
	}

	sent := d.client.Send(ctx, wh.URL, formatter.ContentType(), payload)
	result.StatusCode = sent.StatusCode
	result.Duration = sent.Duration
	result.Error = sent.Error
	result.Success = sent.Error == nil
	d.recordUse(wh.Name, sent.Error)

	if sent.Error != nil {
		logging.Warn("webhook delivery failed",
			logging.KeyWebhook, wh.Name,
			logging.KeyStatus, sent.StatusCode,
			logging.KeyError, sent.Error)
		if d.queue != nil && sent.Retryable() {
			d.queue.Enqueue(QueuedNotification{
				ID:          uuid.NewString(),
				WebhookName: wh.Name,
				URL:         wh.URL,
				ContentType: formatter.ContentType(),
				Body:        payload,
				MaxRetries:  len(config.Global.RetryQueue.BackoffSchedule),
			}, sent.Error)
			result.Queued = true
		}
	}
	return result
}

// recordUse stores the delivery outcome; a failure to record it is only logged.
func (d *Dispatcher) recordUse(name string, sendErr error) {
	if err := d.webhooks.UpdateLastUsed(name, sendErr); err != nil {
		logging.DebugLog("could not record webhook use", logging.KeyWebhook, name, logging.KeyError, err)
	}
}

// SendToSingle sends n to one webhook by name, ignoring relay preferences.
func (d *Dispatcher) SendToSingle(ctx context.Context, n *model.Notification, name string) DispatchResult {
	wh, err := d.webhooks.Get(name)
	if err != nil {
		return DispatchResult{WebhookName: name, Error: err}
	}
	return d.send(ctx, n, wh)
}

// TestWebhook sends a test notification to one webhook.
func (d *Dispatcher) TestWebhook(ctx context.Context, name string) DispatchResult {
	n := model.NewNotification(
		model.NotifyTest,
		"BikeGuard Test",
		"This is a test notification from BikeGuard. If you see this, your webhook is configured correctly!",
	).WithField("Webhook", name).WithField("Time", time.Now().Format("3:04 PM"))

	return d.SendToSingle(ctx, n, name)
}

// CountEnabledWebhooks returns the number of enabled webhooks.
func (d *Dispatcher) CountEnabledWebhooks() int {
	webhooks, err := d.webhooks.ListEnabled()
	if err != nil {
		return 0
	}
	return len(webhooks)
}
