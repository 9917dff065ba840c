package lander

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/adapters/file"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/aretw0/lander/pkg/scripts"
	"github.com/aretw0/lander/pkg/session"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Lander bundles a script source with the session manager serving it.
type Lander struct {
	// Name labels the script source (the directory base name, or "embedded").
	Name string

	loader  ports.ScriptLoader
	manager *session.Manager
	logger  *slog.Logger
}

type options struct {
	loader      ports.ScriptLoader
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	sessionOpts []session.Option
}

// Option configures the Lander.
type Option func(*options)

// WithLoader injects a custom script source. The scripts directory is then only a label.
func WithLoader(l ports.ScriptLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithLogger configures the logger shared by the loader, the manager and every session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers hooks on every session. Repeated calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithSessionOptions forwards options to the session manager.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// New initializes a Lander.
// With an empty scriptsDir and no WithLoader option, the embedded funnels are served.
func New(scriptsDir string, opts ...Option) (*Lander, error) {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Lander{Name: "embedded", loader: o.loader}
	switch {
	case l.loader != nil:
		if scriptsDir != "" {
			l.Name = filepath.Base(scriptsDir)
		}
	case scriptsDir == "":
		l.loader = scripts.Loader(o.logger)
	default:
		absPath, err := filepath.Abs(scriptsDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("scripts directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("scripts directory: %s is not a directory", absPath)
		}
		l.Name = filepath.Base(absPath)
		l.loader = file.NewDir(absPath, file.WithLogger(o.logger))
	}

	l.logger = o.logger.With("scripts", l.Name)
	sessionOpts := append([]session.Option{
		session.WithLogger(l.logger),
		session.WithHooks(o.hooks),
	}, o.sessionOpts...)
	l.manager = session.NewManager(l.loader, sessionOpts...)
	return l, nil
}

// Loader returns the script source.
func (l *Lander) Loader() ports.ScriptLoader {
	return l.loader
}

// Manager returns the session manager.
func (l *Lander) Manager() *session.Manager {
	return l.manager
}

// Start opens a session of funnelID. See session.Manager.Start.
func (l *Lander) Start(ctx context.Context, funnelID, phone string) (*runner.Runner, error) {
	return l.manager.Start(ctx, funnelID, phone)
}

// Validate loads every listed funnel and reports all broken ones at once.
func (l *Lander) Validate() error {
	ids, err := l.loader.List()
	if err != nil {
		return fmt.Errorf("failed to list funnels: %w", err)
	}
	if len(ids) == 0 {
		return errors.New("no funnels found")
	}
	var errs []error
	for _, id := range ids {
		if _, err := l.loader.Load(id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Play runs one session of funnelID through h until it settles, then ends it.
// It returns the last snapshot of the session.
func (l *Lander) Play(ctx context.Context, funnelID, phone string, h runner.IOHandler, opts ...runner.PlayOption) (domain.Snapshot, error) {
	r, err := l.Start(ctx, funnelID, phone)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer l.manager.End(r.SessionID())

	opts = append([]runner.PlayOption{runner.WithPlayLogger(l.logger)}, opts...)
	err = runner.Play(ctx, r, h, opts...)
	return r.Snapshot(), err
}

// Close ends every live session and closes the loader when it holds a connection.
func (l *Lander) Close() {
	l.manager.Close()
	if c, ok := l.loader.(io.Closer); ok {
		if err := c.Close(); err != nil {
			l.logger.Warn("Failed to close script loader", "err", err)
		}
	}
}
