package storage

import (
	"time"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
)

// IncidentRepo stores detection history. Keys embed UUIDv7 ids, so key order
// is detection order.
type IncidentRepo struct {
	db *DB
}

// NewIncidentRepo creates a new incident repository.
func NewIncidentRepo(db *DB) *IncidentRepo {
	return &IncidentRepo{db: db}
}

// Create stores a new incident.
func (r *IncidentRepo) Create(inc *model.Incident) error {
	if inc.Key == "" {
		inc.Key = model.GenerateIncidentKey(inc.ID)
	}
	return r.db.Set(inc)
}

// Update overwrites an incident.
func (r *IncidentRepo) Update(inc *model.Incident) error {
	return r.db.Set(inc)
}

// Get retrieves an incident by id.
func (r *IncidentRepo) Get(id string) (*model.Incident, error) {
	inc := &model.Incident{}
	if err := r.db.Get(model.GenerateIncidentKey(id), inc); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, errors.Wrapf(errors.ErrIncidentNotFound, "%s", id)
		}
		return nil, err
	}
	return inc, nil
}

// List returns all incidents, newest first.
func (r *IncidentRepo) List() ([]*model.Incident, error) {
	// Incident ids are UUIDv7, so reverse key order is newest first.
	return Scan(r.db, model.PrefixIncident+":", true, func() *model.Incident {
		return &model.Incident{}
	})
}

// ListSince returns incidents detected at or after since, newest first.
func (r *IncidentRepo) ListSince(since time.Time) ([]*model.Incident, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, inc := range all {
		if !inc.DetectedAt.Before(since) {
			out = append(out, inc)
		}
	}
	return out, nil
}

// Pending returns incidents whose countdown never resolved, e.g. after a crash.
func (r *IncidentRepo) Pending() ([]*model.Incident, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []*model.Incident
	for _, inc := range all {
		if inc.IsPending() {
			out = append(out, inc)
		}
	}
	return out, nil
}

// Delete removes an incident by id.
func (r *IncidentRepo) Delete(id string) error {
	return r.db.Delete(model.GenerateIncidentKey(id))
}
