package alert

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// Opener hands a URL to whatever the desktop uses for it.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// ExecOpener opens URLs by running an external program.
type ExecOpener struct {
	Name string
	Args []string

	run func(ctx context.Context, name string, args ...string) error
}

// NewExecOpener returns an opener for the current platform. A non-empty
// override ("firefox --new-tab") replaces the platform default.
func NewExecOpener(override string) (*ExecOpener, error) {
	return newExecOpener(override, runtime.GOOS, exec.LookPath)
}

func newExecOpener(override, goos string, lookPath func(string) (string, error)) (*ExecOpener, error) {
	var name string
	var args []string

	if fields := strings.Fields(override); len(fields) > 0 {
		name, args = fields[0], fields[1:]
	} else {
		switch goos {
		case "darwin":
			name = "open"
		case "windows":
			name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
		default:
			name = "xdg-open"
		}
	}

	if _, err := lookPath(name); err != nil {
		return nil, errors.Wrapf(errors.ErrOpenerUnavailable, "%s", name)
	}
	return &ExecOpener{
		Name: name,
		Args: args,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}, nil
}

// Open runs the opener with url as the last argument.
func (o *ExecOpener) Open(ctx context.Context, url string) error {
	args := append(append([]string{}, o.Args...), url)
	if err := o.run(ctx, o.Name, args...); err != nil {
		return errors.Wrapf(err, "opening link with %s", o.Name)
	}
	return nil
}
