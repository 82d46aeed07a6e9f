// Package runtime provides the application runtime context for BikeGuard.
package runtime

import (
	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/output"
	"github.com/manav03panchal/bikeguard/internal/storage"
)

// Context holds the application runtime context.
type Context struct {
	DB        *storage.DB
	Config    *config.RuntimeConfig
	Formatter *output.Formatter

	// Repositories
	Profiles     *storage.ProfileRepo
	Webhooks     *storage.WebhookRepo
	Incidents    *storage.IncidentRepo
	NotifyConfig *storage.NotifyConfigRepo

	// Debug mode
	Debug bool
}

// Options configures the runtime context.
type Options struct {
	// DBPath overrides BIKEGUARD_DATABASE and the XDG default.
	DBPath     string
	InMemory   bool
	ConfigPath string
	Format     output.Format
	ColorMode  output.ColorMode
	Debug      bool
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		ConfigPath: config.DefaultPath(),
		Format:     output.FormatCLI,
		ColorMode:  output.ColorAuto,
	}
}

// New loads the configuration, opens the database and creates the repositories.
// The loaded configuration also replaces config.Global.
func New(opts Options) (*Context, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	config.Global = cfg

	dbOpts := storage.ResolveOptions()
	switch {
	case opts.InMemory:
		dbOpts = storage.Options{InMemory: true}
	case opts.DBPath != "":
		dbOpts = storage.Options{Path: opts.DBPath, Lock: true}
	}

	db, err := storage.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	return &Context{
		DB:           db,
		Config:       cfg,
		Formatter:    formatter,
		Profiles:     storage.NewProfileRepo(db),
		Webhooks:     storage.NewWebhookRepo(db),
		Incidents:    storage.NewIncidentRepo(db),
		NotifyConfig: storage.NewNotifyConfigRepo(db),
		Debug:        opts.Debug,
	}, nil
}

// Close closes the runtime context.
func (c *Context) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...any) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
