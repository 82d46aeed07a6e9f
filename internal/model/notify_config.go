package model

// NotifyConfig holds per-type relay preferences for webhooks.
type NotifyConfig struct {
	// Enabled toggles each notification type; missing entries count as enabled.
	Enabled map[string]bool `json:"enabled"`
}

// DefaultNotifyConfig relays emergencies, impacts and cancellations but not
// status chatter or tests.
func DefaultNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		Enabled: map[string]bool{
			string(NotifyEmergency): true,
			string(NotifyImpact):    true,
			string(NotifyCancelled): true,
			string(NotifyStatus):    false,
			string(NotifyTest):      true,
		},
	}
}

// IsTypeEnabled checks if a notification type is enabled. Emergencies are
// always relayed.
func (c *NotifyConfig) IsTypeEnabled(t NotificationType) bool {
	if t == NotifyEmergency {
		return true
	}
	if c.Enabled == nil {
		return true
	}
	enabled, exists := c.Enabled[string(t)]
	if !exists {
		return true
	}
	return enabled
}

// SetTypeEnabled sets whether a notification type is enabled.
func (c *NotifyConfig) SetTypeEnabled(t NotificationType, enabled bool) {
	if c.Enabled == nil {
		c.Enabled = make(map[string]bool)
	}
	c.Enabled[string(t)] = enabled
}

// Clone creates a deep copy of the config.
func (c *NotifyConfig) Clone() *NotifyConfig {
	clone := &NotifyConfig{}
	if c.Enabled != nil {
		clone.Enabled = make(map[string]bool, len(c.Enabled))
		for k, v := range c.Enabled {
			clone.Enabled[k] = v
		}
	}
	return clone
}

// IsValidNotificationType reports whether t names a known type.
func IsValidNotificationType(t string) bool {
	for _, known := range AllNotificationTypes() {
		if string(known) == t {
			return true
		}
	}
	return false
}
