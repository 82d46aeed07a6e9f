package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/config"
)

func TestOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker:   "tcp://broker.local:1883",
		ClientID: "bikeguard",
		Username: "rider",
		Password: "pw",
	}

	opts := Options(cfg, "sensor")
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker.local:1883", opts.Servers[0].Host)
	assert.Equal(t, "bikeguard-sensor", opts.ClientID)
	assert.Equal(t, "rider", opts.Username)
	assert.Equal(t, "pw", opts.Password)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, 10*time.Second, opts.ConnectTimeout)
}

func TestOptionsNoRole(t *testing.T) {
	opts := Options(config.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "bg"}, "")
	assert.Equal(t, "bg", opts.ClientID)
	assert.Empty(t, opts.Username)
}
