package model

import (
	"encoding/json"
	"strings"
)

// Profile defaults, applied whenever a stored value is missing or zero.
const (
	DefaultThreshold     = 3.5
	DefaultCountdownTime = 10
)

// Contact is an emergency contact. ID is the creation time in Unix milliseconds.
type Contact struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Settings holds the alarm toggles.
type Settings struct {
	EnableSound     bool `json:"enableSound"`
	EnableVibration bool `json:"enableVibration"`
}

// DefaultSettings enables both sound and vibration.
func DefaultSettings() Settings {
	return Settings{EnableSound: true, EnableVibration: true}
}

// SettingsUpdate is a partial settings change; nil fields are left alone.
type SettingsUpdate struct {
	Threshold       *float64 `json:"threshold"`
	CountdownTime   *int     `json:"countdownTime"`
	EnableSound     *bool    `json:"enableSound"`
	EnableVibration *bool    `json:"enableVibration"`
}

// Apply copies the set fields onto p.
func (u SettingsUpdate) Apply(p *Profile) {
	if u.Threshold != nil {
		p.Threshold = *u.Threshold
	}
	if u.CountdownTime != nil {
		p.CountdownTime = *u.CountdownTime
	}
	if u.EnableSound != nil {
		p.Settings.EnableSound = *u.EnableSound
	}
	if u.EnableVibration != nil {
		p.Settings.EnableVibration = *u.EnableVibration
	}
}

// Profile is the rider's persisted state. Its JSON shape is the on-disk format.
type Profile struct {
	Contacts      []Contact `json:"contacts"`
	Settings      Settings  `json:"settings"`
	Threshold     float64   `json:"threshold"`
	CountdownTime int       `json:"countdownTime"`
}

// DefaultProfile returns a profile with no contacts and default settings.
func DefaultProfile() *Profile {
	return &Profile{
		Contacts:      []Contact{},
		Settings:      DefaultSettings(),
		Threshold:     DefaultThreshold,
		CountdownTime: DefaultCountdownTime,
	}
}

// storedProfile mirrors Profile with nullable fields so missing values can be told apart.
type storedProfile struct {
	Contacts      []Contact `json:"contacts"`
	Settings      *Settings `json:"settings"`
	Threshold     float64   `json:"threshold"`
	CountdownTime int       `json:"countdownTime"`
}

// DecodeProfile parses a stored blob. A missing or null settings object falls
// back to the defaults; a present one is taken as-is, so absent toggles read false.
// Zero threshold and countdown fall back to their defaults.
func DecodeProfile(data []byte) (*Profile, error) {
	var raw storedProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	p := &Profile{
		Contacts:      raw.Contacts,
		Settings:      DefaultSettings(),
		Threshold:     raw.Threshold,
		CountdownTime: raw.CountdownTime,
	}
	if raw.Settings != nil {
		p.Settings = *raw.Settings
	}
	p.Normalize()
	return p, nil
}

// Encode serializes the profile in its stored shape.
func (p *Profile) Encode() ([]byte, error) {
	out := *p
	if out.Contacts == nil {
		out.Contacts = []Contact{}
	}
	return json.Marshal(out)
}

// Normalize replaces nil contacts and zero threshold/countdown with defaults.
func (p *Profile) Normalize() {
	if p.Contacts == nil {
		p.Contacts = []Contact{}
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if p.CountdownTime == 0 {
		p.CountdownTime = DefaultCountdownTime
	}
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Contacts = make([]Contact, len(p.Contacts))
	copy(c.Contacts, p.Contacts)
	return &c
}

// FindContact returns the contact with the given id.
func (p *Profile) FindContact(id int64) (Contact, bool) {
	for _, c := range p.Contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

// NextContactID returns nowMillis, bumped until it does not collide with an existing id.
func (p *Profile) NextContactID(nowMillis int64) int64 {
	id := nowMillis
	for {
		if _, taken := p.FindContact(id); !taken {
			return id
		}
		id++
	}
}

// AddContact trims name and phone and appends a new contact.
// It returns false if either field is blank after trimming.
func (p *Profile) AddContact(name, phone string, nowMillis int64) (Contact, bool) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return Contact{}, false
	}
	c := Contact{ID: p.NextContactID(nowMillis), Name: name, Phone: phone}
	p.Contacts = append(p.Contacts, c)
	return c, true
}

// RemoveContact drops the contact with the given id and reports whether it existed.
func (p *Profile) RemoveContact(id int64) bool {
	kept := p.Contacts[:0]
	removed := false
	for _, c := range p.Contacts {
		if c.ID == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	p.Contacts = kept
	return removed
}
