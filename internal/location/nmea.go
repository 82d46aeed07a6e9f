package location

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

// hdopMeters converts horizontal dilution of precision to an accuracy radius.
const hdopMeters = 5.0

// NMEAParser folds a stream of NMEA sentences into fixes. Position comes from
// valid RMC sentences; accuracy comes from the last GGA HDOP.
type NMEAParser struct {
	hdop float64
}

// Feed parses one line. It returns a fix for every valid RMC sentence.
func (p *NMEAParser) Feed(line string, now time.Time) (Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		gga := sentence.(nmea.GGA)
		if gga.FixQuality != nmea.Invalid {
			p.hdop = gga.HDOP
		}
	case nmea.TypeRMC:
		rmc := sentence.(nmea.RMC)
		if rmc.Validity != nmea.ValidRMC {
			return Fix{}, false
		}
		return Fix{
			Latitude:  rmc.Latitude,
			Longitude: rmc.Longitude,
			Accuracy:  p.hdop * hdopMeters,
			At:        now,
		}, true
	}
	return Fix{}, false
}

// NMEASource reads NMEA sentences from a serial GPS receiver.
type NMEASource struct {
	Port     string
	BaudRate uint

	open func() (io.ReadCloser, error)
}

// NewNMEASource creates a source for the given serial port.
func NewNMEASource(port string, baud uint) *NMEASource {
	if baud == 0 {
		baud = 9600
	}
	return &NMEASource{Port: port, BaudRate: baud}
}

func (s *NMEASource) openPort() (io.ReadCloser, error) {
	if s.open != nil {
		return s.open()
	}
	return serial.Open(serial.OpenOptions{
		PortName:        s.Port,
		BaudRate:        s.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}

// Fixes opens the port and parses it in a goroutine.
func (s *NMEASource) Fixes(ctx context.Context) (<-chan Fix, error) {
	port, err := s.openPort()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLocationUnavailable, "open %s: %v", s.Port, err)
	}
	logging.Info("GPS serial port opened", logging.KeyComponent, "location", "port", s.Port, "baud", s.BaudRate)

	out := make(chan Fix, 1)
	go func() {
		<-ctx.Done()
		port.Close()
	}()
	go func() {
		defer close(out)
		var parser NMEAParser
		reader := bufio.NewReader(port)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if ctx.Err() == nil {
					logging.Component("location").Warn("GPS read error", logging.KeyError, err)
				}
				return
			}
			fix, ok := parser.Feed(line, time.Now())
			if !ok {
				continue
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
