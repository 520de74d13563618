// Package view is the headless screen: it owns the rendered list and
// serialises every state change through one event loop.
//
// Fetches run on background goroutines. Their results are handed to the
// loop before any rendering state is touched, and the Renderer is only
// ever called from the loop goroutine.
package view

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rcliao/postcache/internal/model"
	"github.com/rcliao/postcache/internal/projection"
)

// Screen titles shown for each state.
const (
	TitleInitial = "Load Data"
	TitleRemote  = "Api Data"
	TitleLocal   = "Core Data"
)

// ErrStopped is returned by Snapshot once the loop has exited.
var ErrStopped = errors.New("view stopped")

// Frame is what gets rendered: a title label and the current list.
type Frame struct {
	Title string
	List  *projection.List
}

// Renderer consumes frames. Render is called on the loop goroutine only.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

// Loader is the data side the controller drives.
type Loader interface {
	SyncList(ctx context.Context) (*projection.List, *model.SyncRun, error)
	LoadRemote(ctx context.Context) (*projection.List, error)
	LoadLocal(ctx context.Context) (*projection.List, error)
}

// Controller owns the screen state. Create with New, then call Run.
type Controller struct {
	loader   Loader
	renderer Renderer
	logger   *slog.Logger

	// lifetime of background fetches; cancelled when Run returns
	ctx    context.Context
	cancel context.CancelFunc

	actions chan func()
	stopped chan struct{}

	// loop-owned
	frame Frame
}

// New creates a Controller. A nil renderer discards frames.
func New(loader Loader, renderer Renderer, logger *slog.Logger) *Controller {
	if renderer == nil {
		renderer = RendererFunc(func(Frame) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		loader:   loader,
		renderer: renderer,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		actions:  make(chan func(), 64),
		stopped:  make(chan struct{}),
		frame:    Frame{Title: TitleInitial},
	}
}

// Run processes actions until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer c.cancel()
	defer close(c.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.actions:
			fn()
		}
	}
}

// post hands fn to the loop. It drops fn once the loop has stopped.
func (c *Controller) post(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.stopped:
	}
}

// Start performs the initial load: fetch, persist every entry, then show
// the fetched rows.
func (c *Controller) Start() {
	c.post(func() { c.setTitle(TitleInitial) })
	go func() {
		list, run, err := c.loader.SyncList(c.ctx)
		if err != nil {
			c.logger.Error("initial sync", "error", err)
		} else {
			c.logger.Info("initial sync", "run", run.ID, "stored", run.Stored)
		}
		if list == nil {
			return
		}
		c.post(func() { c.show(TitleInitial, list) })
	}()
}

// RefreshRemote re-fetches and shows remote rows without persisting them.
func (c *Controller) RefreshRemote() {
	c.post(func() { c.setTitle(TitleRemote) })
	go func() {
		list, err := c.loader.LoadRemote(c.ctx)
		if err != nil {
			c.logger.Error("load from api", "error", err)
			return
		}
		c.post(func() { c.show(TitleRemote, list) })
	}()
}

// LoadLocal shows whatever is currently stored. The store is read on the
// loop goroutine.
func (c *Controller) LoadLocal() {
	c.post(func() {
		c.setTitle(TitleLocal)
		list, err := c.loader.LoadLocal(c.ctx)
		if err != nil {
			c.logger.Error("load from store", "error", err)
			return
		}
		c.show(TitleLocal, list)
	})
}

// Snapshot returns the current frame.
func (c *Controller) Snapshot(ctx context.Context) (Frame, error) {
	ch := make(chan Frame, 1)
	select {
	case c.actions <- func() { ch <- c.frame }:
	case <-c.stopped:
		return Frame{}, ErrStopped
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
	select {
	case f := <-ch:
		return f, nil
	case <-c.stopped:
		return Frame{}, ErrStopped
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *Controller) setTitle(title string) {
	c.frame.Title = title
	c.renderer.Render(c.frame)
}

// show sets title and list together so a late fetch never renders under
// another source's title.
func (c *Controller) show(title string, list *projection.List) {
	c.frame = Frame{Title: title, List: list}
	c.renderer.Render(c.frame)
}
