package sensor

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/motion"
)

// ReplaySource plays back a CSV recording with rows "t_ms,x,y,z" in m/s².
// An empty cell is a missing axis. A leading header row is skipped.
type ReplaySource struct {
	Path string
	// Speed scales playback; 2 plays twice as fast, 0 sends every row at once.
	Speed float64

	// open is replaced in tests.
	open func(path string) (io.ReadCloser, error)
	now  func() time.Time
}

// NewReplaySource creates a replay of path at the given speed.
func NewReplaySource(path string, speed float64) *ReplaySource {
	return &ReplaySource{Path: path, Speed: speed}
}

// Samples opens the recording and plays it in a goroutine.
func (r *ReplaySource) Samples(ctx context.Context) (<-chan Sample, error) {
	open := r.open
	if open == nil {
		open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	now := r.now
	if now == nil {
		now = time.Now
	}

	f, err := open(r.Path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSensorUnavailable, "replay %s: %v", r.Path, err)
	}

	out := make(chan Sample)
	go func() {
		defer close(out)
		defer f.Close()
		r.play(ctx, f, out, now)
	}()
	return out, nil
}

func (r *ReplaySource) play(ctx context.Context, in io.Reader, out chan<- Sample, now func() time.Time) {
	log := logging.Component("sensor")
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	start := now()
	var prevMS int64
	first := true
	line := 0

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return
		}
		line++
		if err != nil {
			log.Warn("replay read failed", "line", line, logging.KeyError, err)
			return
		}

		ms, accel, err := parseRow(rec)
		if err != nil {
			if line > 1 {
				log.Warn("skipping replay row", "line", line, logging.KeyError, err)
			}
			continue
		}

		if r.Speed > 0 && !first && ms > prevMS {
			wait := time.Duration(float64(ms-prevMS)/r.Speed) * time.Millisecond
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		first = false
		prevMS = ms

		at := start.Add(time.Duration(ms) * time.Millisecond)
		if r.Speed > 0 {
			at = now()
		}
		select {
		case <-ctx.Done():
			return
		case out <- Sample{Accel: accel, At: at}:
		}
	}
}

// parseRow reads "t_ms,x,y,z". A row whose axes are all empty is a null reading.
func parseRow(rec []string) (int64, *motion.Acceleration, error) {
	if len(rec) < 4 {
		return 0, nil, errors.NewUserError("replay row needs 4 columns: t_ms,x,y,z", "")
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return 0, nil, err
	}

	var axes [3]*float64
	present := false
	for i := range 3 {
		cell := strings.TrimSpace(rec[i+1])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return 0, nil, err
		}
		axes[i] = &v
		present = true
	}
	if !present {
		return ms, nil, nil
	}
	return ms, &motion.Acceleration{X: axes[0], Y: axes[1], Z: axes[2]}, nil
}
