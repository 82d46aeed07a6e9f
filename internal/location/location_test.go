package location

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
)

const (
	rmcValid = "$GPRMC,081836,A,3751.65,S,14507.36,E,000.0,360.0,130998,011.3,E*62"
	rmcVoid  = "$GPRMC,081836,V,3751.65,S,14507.36,E,000.0,360.0,130998,011.3,E*75"
	ggaHDOP  = "$GPGGA,081836,3751.65,S,14507.36,E,1,08,1.2,12.0,M,0.0,M,,*52"
)

// =============================================================================
// Tracker Tests
// =============================================================================

func TestTrackerCurrent(t *testing.T) {
	tr := NewTracker(10*time.Second, time.Second)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	assert.Nil(t, tr.Current())
	assert.Equal(t, StatusWaiting, tr.Status())

	tr.Update(Fix{Latitude: 51.5, Longitude: -0.1, Accuracy: 12, At: now.Add(-5 * time.Second)})
	require.NotNil(t, tr.Current())
	assert.Equal(t, StatusActive, tr.Status())

	now = now.Add(6 * time.Second)
	assert.Nil(t, tr.Current(), "fix older than max age")
	assert.NotNil(t, tr.Last())
}

func TestTrackerUpdateStampsTime(t *testing.T) {
	tr := NewTracker(10*time.Second, time.Second)
	tr.Update(Fix{Latitude: 1, Longitude: 2})
	f := tr.Current()
	require.NotNil(t, f)
	assert.False(t, f.At.IsZero())
}

func TestTrackerAcquire(t *testing.T) {
	t.Run("returns_current_immediately", func(t *testing.T) {
		tr := NewTracker(10*time.Second, time.Second)
		tr.Update(Fix{Latitude: 1, Longitude: 2})
		assert.NotNil(t, tr.Acquire(context.Background()))
	})

	t.Run("waits_for_update", func(t *testing.T) {
		tr := NewTracker(10*time.Second, 2*time.Second)
		go func() {
			time.Sleep(50 * time.Millisecond)
			tr.Update(Fix{Latitude: 3, Longitude: 4})
		}()
		f := tr.Acquire(context.Background())
		require.NotNil(t, f)
		assert.Equal(t, 3.0, f.Latitude)
	})

	t.Run("timeout_returns_nil", func(t *testing.T) {
		tr := NewTracker(10*time.Second, 50*time.Millisecond)
		start := time.Now()
		assert.Nil(t, tr.Acquire(context.Background()))
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestTrackerFail(t *testing.T) {
	tr := NewTracker(10*time.Second, time.Second)
	tr.Fail(fmt.Errorf("permission denied"))
	assert.Equal(t, StatusError, tr.Status())
}

type failingSource struct{}

func (failingSource) Fixes(context.Context) (<-chan Fix, error) {
	return nil, errors.ErrLocationUnavailable
}

func TestTrackerRun(t *testing.T) {
	tr := NewTracker(10*time.Second, time.Second)
	err := tr.Run(context.Background(), failingSource{})
	assert.ErrorIs(t, err, errors.ErrLocationUnavailable)
	assert.Equal(t, StatusError, tr.Status())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &StaticSource{Fix: Fix{Latitude: 10, Longitude: 20}, Interval: time.Hour}
	go tr.Run(ctx, src)

	f := tr.Acquire(context.Background())
	require.NotNil(t, f)
	assert.Equal(t, 10.0, f.Latitude)
	assert.Equal(t, StatusActive, tr.Status())
}

// =============================================================================
// NMEA Tests
// =============================================================================

func TestNMEAParser(t *testing.T) {
	var p NMEAParser
	now := time.Now()

	_, ok := p.Feed("garbage", now)
	assert.False(t, ok)
	_, ok = p.Feed(rmcVoid, now)
	assert.False(t, ok, "void RMC")

	f, ok := p.Feed(rmcValid, now)
	require.True(t, ok)
	assert.InDelta(t, -37.860833, f.Latitude, 1e-5)
	assert.InDelta(t, 145.122667, f.Longitude, 1e-5)
	assert.Equal(t, 0.0, f.Accuracy, "no GGA seen yet")

	_, ok = p.Feed(ggaHDOP, now)
	assert.False(t, ok)
	f, ok = p.Feed(rmcValid+"\r\n", now)
	require.True(t, ok)
	assert.InDelta(t, 6.0, f.Accuracy, 1e-9)
}

func TestNMEASource(t *testing.T) {
	stream := strings.Join([]string{ggaHDOP, "$GPXXX,bad*00", rmcValid, ""}, "\r\n")
	src := NewNMEASource("/dev/null", 0)
	assert.Equal(t, uint(9600), src.BaudRate)
	src.open = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(stream)), nil
	}

	ch, err := src.Fixes(context.Background())
	require.NoError(t, err)

	var fixes []Fix
	for f := range ch {
		fixes = append(fixes, f)
	}
	require.Len(t, fixes, 1)
	assert.InDelta(t, 6.0, fixes[0].Accuracy, 1e-9)
}

func TestNMEASourceOpenError(t *testing.T) {
	src := NewNMEASource("/dev/ttyNOPE", 4800)
	src.open = func() (io.ReadCloser, error) { return nil, fmt.Errorf("no such device") }
	_, err := src.Fixes(context.Background())
	assert.ErrorIs(t, err, errors.ErrLocationUnavailable)
}

// =============================================================================
// MQTT / Static / Config Tests
// =============================================================================

func TestParseFixPayload(t *testing.T) {
	now := time.Now()

	f, err := ParseFixPayload([]byte(`{"time":"08:18:36","lat":51.5,"lon":-0.12,"speed_knots":3,"validity":"A"}`), now)
	require.NoError(t, err)
	assert.Equal(t, 51.5, f.Latitude)
	assert.Equal(t, now, f.At)

	f, err = ParseFixPayload([]byte(`{"lat":0,"lon":0,"accuracy":8}`), now)
	require.NoError(t, err)
	assert.Equal(t, 8.0, f.Accuracy)

	_, err = ParseFixPayload([]byte(`{"lat":1,"lon":2,"validity":"V"}`), now)
	assert.Error(t, err)
	_, err = ParseFixPayload([]byte(`{"lon":2}`), now)
	assert.Error(t, err)
	_, err = ParseFixPayload([]byte(`{"lat":95,"lon":2}`), now)
	assert.Error(t, err)
}

func TestStaticSourceInvalid(t *testing.T) {
	src := &StaticSource{Fix: Fix{Latitude: 200}}
	_, err := src.Fixes(context.Background())
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultRuntimeConfig()

	src, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, src)

	cfg.Location.Source = "static"
	cfg.Location.Latitude = 48.85
	cfg.Location.Longitude = 2.35
	src, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 48.85, src.(*StaticSource).Fix.Latitude)

	cfg.Location.Source = "nmea"
	cfg.Location.SerialPort = "/dev/serial0"
	src, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/dev/serial0", src.(*NMEASource).Port)

	cfg.Location.Source = "mqtt"
	src, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "bike/gps", src.(*MQTTFixSource).Topic)

	cfg.Location.Source = "carrier-pigeon"
	_, err = FromConfig(cfg)
	assert.Error(t, err)

	tr := NewTrackerFromConfig(config.DefaultRuntimeConfig())
	assert.Equal(t, 10*time.Second, tr.maxAge)
	assert.Equal(t, 5*time.Second, tr.timeout)
}
