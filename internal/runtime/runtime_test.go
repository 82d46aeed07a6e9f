package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/bikeguard/internal/alert"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/output"
	"github.com/manav03panchal/bikeguard/internal/sensor"
	"github.com/manav03panchal/bikeguard/internal/storage"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := New(Options{
		InMemory:   true,
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		Format:     output.FormatPlain,
		ColorMode:  output.ColorNever,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

type notes struct {
	mu     sync.Mutex
	titles []string
}

func (n *notes) Notify(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

type quietAlarm struct{}

func (quietAlarm) Start(model.Settings) {}
func (quietAlarm) Stop()                {}

// =============================================================================
// Context Tests
// =============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.NotEmpty(t, opts.ConfigPath)
	assert.False(t, opts.InMemory)
	assert.Equal(t, output.FormatCLI, opts.Format)
	assert.Equal(t, output.ColorAuto, opts.ColorMode)
	assert.False(t, opts.Debug)
}

func TestNew(t *testing.T) {
	ctx := newTestContext(t)

	assert.NotNil(t, ctx.DB)
	assert.NotNil(t, ctx.Config)
	assert.NotNil(t, ctx.Profiles)
	assert.NotNil(t, ctx.Webhooks)
	assert.NotNil(t, ctx.Incidents)
	assert.NotNil(t, ctx.NotifyConfig)
	assert.Equal(t, output.FormatPlain, ctx.Formatter.Format)
	assert.False(t, ctx.IsJSON())
}

func TestNewWithEnvDatabase(t *testing.T) {
	t.Setenv(storage.EnvDatabase, storage.MemoryPath)

	ctx, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)
	defer ctx.Close()

	p, err := ctx.Profiles.Get()
	require.NoError(t, err)
	assert.Empty(t, p.Contacts)
}

func TestNewWithDBPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	ctx, err := New(Options{DBPath: dir, ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)
	_, err = ctx.Profiles.AddContact("Ana", "+15550100")
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	ctx, err = New(Options{DBPath: dir, ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, err)
	defer ctx.Close()

	contacts, err := ctx.Profiles.Contacts()
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana", contacts[0].Name)
}

func TestNewRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeFile(path, "sensor:\n  source: bluetooth\n"))

	_, err := New(Options{InMemory: true, ConfigPath: path})
	assert.ErrorContains(t, err, "sensor.source")
}

func TestDebugf(t *testing.T) {
	ctx := newTestContext(t)
	var buf syncBuffer
	ctx.Formatter.Writer = &buf

	ctx.Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	ctx.Debug = true
	ctx.Debugf("shown %d", 2)
	assert.Equal(t, "[DEBUG] shown 2\n", buf.String())
}

// =============================================================================
// Error Tests
// =============================================================================

func TestFormatError(t *testing.T) {
	msg := FormatError(errors.ErrNotActive)
	assert.Contains(t, msg, errors.ErrNotActive.Error())
	assert.Contains(t, msg, "start protection")

	assert.Equal(t, "plain", FormatError(fmt.Errorf("plain")))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(errors.ErrInvalidThreshold))
	assert.Equal(t, ExitSystem, ExitCode(errors.NewSystemError("boom", nil)))
}

// =============================================================================
// Stack Tests
// =============================================================================

func TestBuildStack(t *testing.T) {
	ctx := newTestContext(t)
	_, err := ctx.Profiles.SetThreshold(4.5)
	require.NoError(t, err)

	stack, err := ctx.BuildStack(StackOptions{
		Notifier: &notes{},
		Alarm:    quietAlarm{},
		Opener:   alert.OpenerFunc(func(context.Context, string) error { return nil }),
	})
	require.NoError(t, err)

	assert.NotNil(t, stack.Guard)
	assert.NotNil(t, stack.Tracker)
	assert.Same(t, stack.Queue, stack.Dispatcher.Queue())
	assert.InDelta(t, 4.5, stack.Guard.Status().Threshold, 1e-9)
}

func TestBuildStackUnknownSource(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Sensor.Source = "bluetooth"

	_, err := ctx.BuildStack(StackOptions{Alarm: quietAlarm{}, Bell: io.Discard})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSensorUnavailable))
}

func TestStackRun(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.Location.Source = "static"
	ctx.Config.Location.Latitude = 51.5
	ctx.Config.Location.Longitude = -0.12

	src := sensor.NewChanSource(4)
	stack, err := ctx.BuildStack(StackOptions{
		Notifier: &notes{},
		Alarm:    quietAlarm{},
		Opener:   alert.OpenerFunc(func(context.Context, string) error { return nil }),
		Extra:    src,
	})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stack.Run(runCtx) }()

	require.True(t, src.Push(sensor.NewSample(0, 0, 1, time.Now())))

	assert.Eventually(t, func() bool {
		return stack.Guard.Status().LastReading != nil
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return stack.Tracker.Current() != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
