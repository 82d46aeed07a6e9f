package storage

import (
	"slices"
	"time"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// WebhookRepo stores relay endpoints keyed by name.
type WebhookRepo struct {
	db *DB
}

func NewWebhookRepo(db *DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

// Create stores webhook, filling in its key and creation time.
func (r *WebhookRepo) Create(webhook *model.Webhook) error {
	if webhook.Key == "" {
		webhook.Key = model.GenerateWebhookKey(webhook.Name)
	}
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = time.Now()
	}
	return r.db.Set(webhook)
}

// Get retrieves a webhook by name.
func (r *WebhookRepo) Get(name string) (*model.Webhook, error) {
	webhook := &model.Webhook{}
	if err := r.db.Get(model.GenerateWebhookKey(name), webhook); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.Wrapf(errors.ErrWebhookNotFound, "%q", name)
		}
		return nil, err
	}
	return webhook, nil
}

// List retrieves all webhooks ordered by name.
func (r *WebhookRepo) List() ([]*model.Webhook, error) {
	return Scan(r.db, model.PrefixWebhook+":", false, func() *model.Webhook {
		return &model.Webhook{}
	})
}

// ListEnabled returns the webhooks that receive notifications.
func (r *WebhookRepo) ListEnabled() ([]*model.Webhook, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(wh *model.Webhook) bool { return !wh.IsEnabled() }), nil
}

// Delete removes the webhook called name.
func (r *WebhookRepo) Delete(name string) error {
	ok, err := r.Exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrWebhookNotFound, "%q", name)
	}
	return r.db.Delete(model.GenerateWebhookKey(name))
}

// SetEnabled turns delivery to the webhook on or off.
func (r *WebhookRepo) SetEnabled(name string, enabled bool) error {
	return r.modify(name, func(wh *model.Webhook) { wh.Enabled = enabled })
}

// UpdateLastUsed records a delivery attempt and its error, if any.
func (r *WebhookRepo) UpdateLastUsed(name string, lastErr error) error {
	return r.modify(name, func(wh *model.Webhook) { wh.MarkUsed(time.Now(), lastErr) })
}

func (r *WebhookRepo) modify(name string, fn func(*model.Webhook)) error {
	wh, err := r.Get(name)
	if err != nil {
		return err
	}
	fn(wh)
	return r.db.Set(wh)
}

func (r *WebhookRepo) Exists(name string) (bool, error) {
	return r.db.Exists(model.GenerateWebhookKey(name))
}
