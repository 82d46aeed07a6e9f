package timer

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Key is a single control keystroke.
type Key int

const (
	KeyNone Key = iota
	KeyCancel
	KeySendNow
	KeyToggle
	KeyTest
	KeyQuit
)

// String returns a string representation of the key.
func (k Key) String() string {
	switch k {
	case KeyCancel:
		return "cancel"
	case KeySendNow:
		return "send"
	case KeyToggle:
		return "toggle"
	case KeyTest:
		return "test"
	case KeyQuit:
		return "quit"
	default:
		return "none"
	}
}

// ParseKey maps a raw byte to a control key.
func ParseKey(b byte) Key {
	switch b {
	case 'c', 'C':
		return KeyCancel
	case 's', 'S':
		return KeySendNow
	case 'a', 'A':
		return KeyToggle
	case 't', 'T':
		return KeyTest
	case 'q', 'Q', 3: // Ctrl+C in raw mode
		return KeyQuit
	default:
		return KeyNone
	}
}

// ReadKeys forwards control keys read from r until ctx is done or r fails.
// The returned channel is closed when reading stops.
func ReadKeys(ctx context.Context, r io.Reader) <-chan Key {
	out := make(chan Key)
	go func() {
		defer close(out)
		buf := make([]byte, 1)
		deadliner, _ := r.(interface{ SetReadDeadline(time.Time) error })

		for {
			if ctx.Err() != nil {
				return
			}
			if deadliner != nil {
				_ = deadliner.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			}
			n, err := r.Read(buf)
			if err != nil {
				if os.IsTimeout(err) {
					continue
				}
				return
			}
			if n == 0 {
				continue
			}
			k := ParseKey(buf[0])
			if k == KeyNone {
				continue
			}
			select {
			case out <- k:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Terminal puts stdin into raw mode and streams control keys plus SIGINT/
// SIGTERM as KeyQuit. Call the returned restore func before exiting.
func Terminal(ctx context.Context) (<-chan Key, func(), error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	keys := ReadKeys(ctx, os.Stdin)
	out := make(chan Key)
	go func() {
		defer close(out)
		for {
			var k Key
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				k = KeyQuit
			case key, ok := <-keys:
				if !ok {
					return
				}
				k = key
			}
			select {
			case out <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	restore := func() {
		cancel()
		signal.Stop(sigCh)
		_ = term.Restore(fd, oldState)
	}
	return out, restore, nil
}

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
