package render

import (
	"context"
	"sync"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	applogger "StockHolo/pkg/logger"
)

// Dispatcher hands frames to each surface on its own goroutine. A slow
// surface only ever sees the newest pending frame.
type Dispatcher struct {
	metrics drepo.Metrics
	logger  *applogger.Logger

	mu      sync.Mutex
	workers []*surfaceWorker
	wg      sync.WaitGroup
	closed  bool
}

type surfaceWorker struct {
	surface drepo.RenderSurface
	pending chan models.Frame
}

// NewDispatcher creates a dispatcher for surfaces.
func NewDispatcher(metrics drepo.Metrics, logger *applogger.Logger, surfaces ...drepo.RenderSurface) *Dispatcher {
	d := &Dispatcher{metrics: metrics, logger: logger.With("render")}
	for _, s := range surfaces {
		d.Add(s)
	}
	return d
}

// Add registers a surface and starts its worker.
func (d *Dispatcher) Add(s drepo.RenderSurface) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	w := &surfaceWorker{surface: s, pending: make(chan models.Frame, 1)}
	d.workers = append(d.workers, w)
	d.wg.Add(1)
	go d.run(w)
}

// Dispatch queues f for every surface. It never blocks on a surface.
func (d *Dispatcher) Dispatch(_ context.Context, f models.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for _, w := range d.workers {
		w.offer(f)
	}
}

// offer replaces any pending frame with the newer of the two.
func (w *surfaceWorker) offer(f models.Frame) {
	for {
		select {
		case w.pending <- f:
			return
		default:
		}
		select {
		case old := <-w.pending:
			if old.Seq > f.Seq {
				f = old
			}
		default:
		}
	}
}

func (d *Dispatcher) run(w *surfaceWorker) {
	defer d.wg.Done()
	for f := range w.pending {
		if err := w.surface.Render(context.Background(), f); err != nil {
			d.metrics.RecordError("render_" + w.surface.Name())
			d.logger.Warn("render failed", applogger.String("surface", w.surface.Name()), applogger.Error(err))
			continue
		}
		d.metrics.RecordFrame(w.surface.Name(), len(f.Visuals))
	}
}

// Close stops the workers after their pending frame.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, w := range d.workers {
		close(w.pending)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
