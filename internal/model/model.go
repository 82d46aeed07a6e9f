// Package model defines the domain models for BikeGuard.
package model

// Model is the interface that all keyed database records implement.
// The profile is stored under a fixed key and does not implement it.
type Model interface {
	SetKey(key string)
	GetKey() string
}

// Database keys and key prefixes.
const (
	// KeyProfile is the single slot holding contacts, settings, threshold and countdown.
	KeyProfile      = "bikeGuard"
	PrefixIncident  = "incident"
	PrefixWebhook   = "webhook"
	KeyNotifyConfig = "config:notify"
)
