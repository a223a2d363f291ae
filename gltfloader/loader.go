package gltfloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/phanxgames/arbor"
)

// DefaultMaxLoads is the number of documents decoded at once by default.
const DefaultMaxLoads = 4

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithMaxLoads limits how many documents are read and decoded at once.
func WithMaxLoads(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// Loader is an arbor.ResourceProvider that reads glTF geometry from a file
// system on background goroutines. Every request reports exactly one
// outcome; cancelled requests fail with arbor.ErrLoadCancelled.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger
	sem    *semaphore.Weighted

	mu      sync.Mutex
	cancels map[arbor.TicketID]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a loader reading paths from fsys.
func New(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys:    fsys,
		logger:  slog.New(slog.DiscardHandler),
		sem:     semaphore.NewWeighted(DefaultMaxLoads),
		cancels: make(map[arbor.TicketID]context.CancelFunc),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load implements arbor.ResourceProvider.
func (l *Loader) Load(id arbor.TicketID, path string, n arbor.LoadNotifier) {
	ctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancels[id] = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.forget(id)

		g, err := l.load(ctx, path)
		if err != nil {
			l.logger.Debug("Geometry load failed.", "ticket", id, "path", path, "error", err)
			n.NotifyLoadFailed(id, err)
			return
		}
		l.logger.Debug("Geometry loaded.", "ticket", id, "path", path, "vertices", len(g.positions))
		n.NotifyLoadSucceeded(id, g)
	}()
}

// CancelLoad implements arbor.ResourceProvider.
func (l *Loader) CancelLoad(id arbor.TicketID) {
	l.mu.Lock()
	cancel, ok := l.cancels[id]
	l.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until every started load has reported its outcome.
func (l *Loader) Wait() { l.wg.Wait() }

func (l *Loader) forget(id arbor.TicketID) {
	l.mu.Lock()
	cancel := l.cancels[id]
	delete(l.cancels, id)
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *Loader) load(ctx context.Context, path string) (*GeometryData, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, cancelled(err)
	}
	defer l.sem.Release(1)

	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	g, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	return g, nil
}

func cancelled(err error) error {
	if errors.Is(err, context.Canceled) {
		return arbor.ErrLoadCancelled
	}
	return err
}

var _ arbor.ResourceProvider = (*Loader)(nil)
