package plugin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/gatecount/internal/region"
	"github.com/ayusman/gatecount/internal/store"
)

// Dispatcher defaults.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

// HookSource looks up the enabled hooks bound to a crossing.
type HookSource interface {
	Matching(regionIndex int, direction string) ([]*store.Hook, error)
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// DispatchStats counts hook executions.
type DispatchStats struct {
	Executed int64 `json:"executed"`
	Failed   int64 `json:"failed"`
	Dropped  int64 `json:"dropped"`
}

type job struct {
	hook   string
	plugin *Plugin
	req    Request
}

// Dispatcher runs the plugins bound to each crossing on a bounded worker
// queue. The frame loop never waits for a plugin: when the queue is full
// the event is dropped and logged.
type Dispatcher struct {
	hooks    HookSource
	manager  *Manager
	executor *Executor
	ctx      context.Context

	queue  chan job
	group  errgroup.Group
	mu     sync.RWMutex
	closed bool
	run    string

	executed atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64

	log *logrus.Entry
}

// NewDispatcher creates a Dispatcher and starts its workers. Plugin calls
// are cancelled when ctx is done.
func NewDispatcher(ctx context.Context, hooks HookSource, manager *Manager, executor *Executor, config DispatcherConfig) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}

	d := &Dispatcher{
		hooks:    hooks,
		manager:  manager,
		executor: executor,
		ctx:      ctx,
		queue:    make(chan job, config.QueueSize),
		log:      logrus.WithField("component", "hooks"),
	}

	for i := 0; i < config.Workers; i++ {
		d.group.Go(d.work)
	}

	return d
}

func (d *Dispatcher) work() error {
	for j := range d.queue {
		log := d.log.WithFields(logrus.Fields{
			"hook":   j.hook,
			"plugin": j.plugin.Manifest.Name,
			"region": j.req.Event.Region,
			"frame":  j.req.Event.Frame,
		})

		resp, err := d.executor.Execute(d.ctx, j.plugin, &j.req)
		switch {
		case err != nil:
			d.failed.Add(1)
			log.WithError(err).Warn("hook failed")
		case !resp.Success:
			d.failed.Add(1)
			log.WithField("error", resp.Error).Warn("hook reported failure")
		default:
			d.executed.Add(1)
			log.Debug("hook executed")
		}
	}
	return nil
}

// Start records the run id sent with every event.
func (d *Dispatcher) Start(run, source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run = run
	return nil
}

// Frame queues the hooks matching every crossing of the frame.
func (d *Dispatcher) Frame(frame int, snaps []region.Snapshot) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	for _, snap := range snaps {
		for _, c := range snap.Crossings {
			direction := c.Direction.String()

			hooks, err := d.hooks.Matching(snap.Region, direction)
			if err != nil {
				d.log.WithError(err).Warn("failed to look up hooks")
				continue
			}

			for _, h := range hooks {
				d.enqueue(h, Event{
					Run:        d.run,
					Region:     snap.Region,
					RegionName: snap.Name,
					Frame:      c.Frame,
					TrackID:    c.TrackID,
					Direction:  direction,
					X:          c.Point.X,
					Y:          c.Point.Y,
					Enter:      snap.Counts.Enter,
					Exit:       snap.Counts.Exit,
				})
			}
		}
	}
}

func (d *Dispatcher) enqueue(h *store.Hook, ev Event) {
	log := d.log.WithFields(logrus.Fields{"hook": h.ID, "plugin": h.PluginName})

	p, err := d.manager.Get(h.PluginName)
	if err != nil {
		log.WithError(err).Warn("hook plugin unavailable")
		return
	}
	if !p.Manifest.Supports(h.ActionName) {
		log.WithField("action", h.ActionName).Warn("plugin does not support action")
		return
	}

	j := job{
		hook:   h.ID,
		plugin: p,
		req:    Request{Action: h.ActionName, Event: ev, Config: h.Config},
	}

	select {
	case d.queue <- j:
	default:
		d.dropped.Add(1)
		log.WithField("frame", ev.Frame).Warn("hook queue full, event dropped")
	}
}

// Report logs the execution counters of the run.
func (d *Dispatcher) Report(run string, reports []region.Report) {
	s := d.Stats()
	d.log.WithFields(logrus.Fields{
		"run":      run,
		"executed": s.Executed,
		"failed":   s.Failed,
		"dropped":  s.Dropped,
	}).Info("hook summary")
}

// Stats returns the execution counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Executed: d.executed.Load(),
		Failed:   d.failed.Load(),
		Dropped:  d.dropped.Load(),
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	return d.group.Wait()
}
