package storage

import (
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/validate"
)

// ProfileRepo stores the rider's profile as one JSON blob under model.KeyProfile.
type ProfileRepo struct {
	db *DB
	// mu serializes read-modify-write updates within the process.
	mu  sync.Mutex
	now func() time.Time
}

// NewProfileRepo creates a new profile repository.
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db, now: time.Now}
}

// Load decodes the stored profile. It returns ErrKeyNotFound when nothing was
// saved yet and the decode error when the blob is corrupt.
func (r *ProfileRepo) Load() (*model.Profile, error) {
	data, err := r.db.GetBytes(model.KeyProfile)
	if err != nil {
		return nil, err
	}
	return model.DecodeProfile(data)
}

// Get returns the stored profile, or the default profile when nothing is
// stored or the blob cannot be decoded. The default is not persisted.
func (r *ProfileRepo) Get() (*model.Profile, error) {
	data, err := r.db.GetBytes(model.KeyProfile)
	if err != nil {
		if IsErrKeyNotFound(err) {
			return model.DefaultProfile(), nil
		}
		return nil, err
	}

	p, err := model.DecodeProfile(data)
	if err != nil {
		logging.Error("Failed to load saved data", logging.KeyError, err)
		return model.DefaultProfile(), nil
	}
	return p, nil
}

// Save writes the whole profile.
func (r *ProfileRepo) Save(p *model.Profile) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	return r.db.SetBytes(model.KeyProfile, data)
}

// update applies fn to the current profile and saves the result.
func (r *ProfileRepo) update(fn func(p *model.Profile) error) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.Get()
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := r.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddContact validates and appends a contact, returning the stored record.
func (r *ProfileRepo) AddContact(name, phone string) (model.Contact, error) {
	if err := validate.Contact(name, phone); err != nil {
		return model.Contact{}, err
	}

	var added model.Contact
	_, err := r.update(func(p *model.Profile) error {
		c, ok := p.AddContact(validate.SanitizeName(name), phone, r.now().UnixMilli())
		if !ok {
			return errors.ErrContactFieldsRequired
		}
		added = c
		return nil
	})
	return added, err
}

// DeleteContact removes the contact with the given id.
func (r *ProfileRepo) DeleteContact(id int64) error {
	_, err := r.update(func(p *model.Profile) error {
		if !p.RemoveContact(id) {
			return errors.ErrContactNotFound
		}
		return nil
	})
	return err
}

// Contacts returns the stored contacts in insertion order.
func (r *ProfileRepo) Contacts() ([]model.Contact, error) {
	p, err := r.Get()
	if err != nil {
		return nil, err
	}
	return p.Contacts, nil
}

// SetThreshold stores the impact threshold in g.
func (r *ProfileRepo) SetThreshold(g float64) (*model.Profile, error) {
	return r.UpdateSettings(model.SettingsUpdate{Threshold: &g})
}

// SetCountdown stores the countdown length in seconds.
func (r *ProfileRepo) SetCountdown(seconds int) (*model.Profile, error) {
	return r.UpdateSettings(model.SettingsUpdate{CountdownTime: &seconds})
}

// SetSound toggles the audible alarm.
func (r *ProfileRepo) SetSound(enabled bool) (*model.Profile, error) {
	return r.UpdateSettings(model.SettingsUpdate{EnableSound: &enabled})
}

// SetVibration toggles the vibration pattern.
func (r *ProfileRepo) SetVibration(enabled bool) (*model.Profile, error) {
	return r.UpdateSettings(model.SettingsUpdate{EnableVibration: &enabled})
}

// UpdateSettings validates every field of u and then stores them together.
// Nothing is written when any field is rejected.
func (r *ProfileRepo) UpdateSettings(u model.SettingsUpdate) (*model.Profile, error) {
	if u.Threshold != nil {
		if err := validate.Threshold(*u.Threshold); err != nil {
			return nil, err
		}
	}
	if u.CountdownTime != nil {
		if err := validate.Countdown(*u.CountdownTime); err != nil {
			return nil, err
		}
	}
	return r.update(func(p *model.Profile) error {
		u.Apply(p)
		return nil
	})
}

// NotifyConfigRepo stores per-type webhook relay preferences.
type NotifyConfigRepo struct {
	db *DB
}

// NewNotifyConfigRepo creates a new notify config repository.
func NewNotifyConfigRepo(db *DB) *NotifyConfigRepo {
	return &NotifyConfigRepo{db: db}
}

// Get returns the stored config, or defaults when nothing is stored.
func (r *NotifyConfigRepo) Get() (*model.NotifyConfig, error) {
	cfg := &model.NotifyConfig{}
	err := r.db.GetJSON(model.KeyNotifyConfig, cfg)
	if err == nil {
		return cfg, nil
	}
	if IsErrKeyNotFound(err) {
		return model.DefaultNotifyConfig(), nil
	}
	return nil, err
}

// Set stores the notify config.
func (r *NotifyConfigRepo) Set(cfg *model.NotifyConfig) error {
	return r.db.SetJSON(model.KeyNotifyConfig, cfg)
}
