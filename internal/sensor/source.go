package sensor

import (
	"context"
	"fmt"
	"sync"

	"github.com/manav03panchal/bikeguard/internal/config"
)

// FromConfig builds the configured accelerometer source. It returns nil for
// source "none".
func FromConfig(cfg *config.RuntimeConfig) (Source, error) {
	switch cfg.Sensor.Source {
	case "mqtt":
		return NewMQTTSource(cfg), nil
	case "replay":
		return NewReplaySource(cfg.Sensor.ReplayFile, cfg.Sensor.ReplaySpeed), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.Sensor.Source)
	}
}

// Merge fans several sources into one. Nil sources are skipped and Merge
// returns nil when none remain. The merged stream ends when every input has
// ended. If any input fails to open, the others are still used and the first
// error is returned only when none opened.
func Merge(sources ...Source) Source {
	var live []Source
	for _, s := range sources {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return merged(live)
}

type merged []Source

func (m merged) Samples(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	var (
		wg       sync.WaitGroup
		firstErr error
		opened   int
	)

	for _, src := range m {
		ch, err := src.Samples(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		opened++
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case s, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- s:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	if opened == 0 && firstErr != nil {
		return nil, firstErr
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}
