package sensor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/manav03panchal/bikeguard/internal/broker"
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/motion"
)

// ErrNoAxes is returned for payloads that carry neither x/y/z nor ax/ay/az.
var ErrNoAxes = stderrors.New("payload has no acceleration fields")

// payload accepts both the m/s² shape and the raw IMU count shape.
type payload struct {
	X  *float64 `json:"x"`
	Y  *float64 `json:"y"`
	Z  *float64 `json:"z"`
	Ax *float64 `json:"ax"`
	Ay *float64 `json:"ay"`
	Az *float64 `json:"az"`
}

// ParsePayload decodes one MQTT message. {"x","y","z"} are taken as m/s².
// {"ax","ay","az"} are raw counts and are divided by lsbPerG and scaled to m/s².
func ParsePayload(data []byte, lsbPerG float64) (motion.Acceleration, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return motion.Acceleration{}, err
	}

	if p.Ax != nil || p.Ay != nil || p.Az != nil {
		if lsbPerG <= 0 {
			lsbPerG = 16384
		}
		scale := func(v *float64) *float64 {
			if v == nil {
				return nil
			}
			ms := *v / lsbPerG * motion.StandardGravity
			return &ms
		}
		return motion.Acceleration{X: scale(p.Ax), Y: scale(p.Ay), Z: scale(p.Az)}, nil
	}

	if p.X == nil && p.Y == nil && p.Z == nil {
		return motion.Acceleration{}, ErrNoAxes
	}
	return motion.Acceleration{X: p.X, Y: p.Y, Z: p.Z}, nil
}

// MQTTSource subscribes to an accelerometer topic.
type MQTTSource struct {
	MQTT    config.MQTTConfig
	Topic   string
	LSBPerG float64
	Buffer  int
}

// NewMQTTSource builds a source from the runtime config.
func NewMQTTSource(cfg *config.RuntimeConfig) *MQTTSource {
	return &MQTTSource{
		MQTT:    cfg.MQTT,
		Topic:   cfg.Sensor.Topic,
		LSBPerG: cfg.Sensor.LSBPerG,
		Buffer:  64,
	}
}

// Samples connects and streams decoded readings. Malformed payloads are logged
// and dropped; so are readings that arrive while the buffer is full.
func (m *MQTTSource) Samples(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample, m.Buffer)
	log := logging.Component("sensor")

	var (
		mu     sync.Mutex
		closed bool
	)

	err := broker.Subscribe(ctx, m.MQTT, "sensor", m.Topic, func(data []byte) {
		a, err := ParsePayload(data, m.LSBPerG)
		if err != nil {
			log.Debug("dropping sensor payload", logging.KeyError, err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- Sample{Accel: &a, At: time.Now()}:
		default:
			log.Debug("sensor buffer full, dropping sample")
		}
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSensorUnavailable, "%v", err)
	}

	go func() {
		<-ctx.Done()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}
