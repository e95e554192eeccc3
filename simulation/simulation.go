// Package simulation runs modules on the frames of a level.
package simulation

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/szgerii/Safari-sub001/featureflag"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/modules"
)

// Config is the configuration of a runner.
type Config struct {
	// The modules to run, in the order they handle each frame.
	Modules []modules.Module

	// Flags disabling modules.
	FeatureFlags featureflag.FeatureFlag

	// The number of frames between two rebuilds of the spatial index. Zero
	// disables rebuilds.
	RebuildInterval uint64

	// The interval between two frame summary logs. Zero disables them.
	SummaryInterval time.Duration
}

// Runner binds modules to the frames of a level.
type Runner struct {
	level           *models.Level
	modules         []modules.Module
	rebuildInterval uint64
	summary         *summary
}

// New returns a runner for l. Modules disabled by a feature flag are left out
// and the others are initialized.
func New(l *models.Level, conf Config) *Runner {
	r := &Runner{
		level:           l,
		rebuildInterval: conf.RebuildInterval,
		summary:         newSummary(l, conf.SummaryInterval),
	}

	for _, m := range conf.Modules {
		if flag, ok := featureflag.ModuleFlag(m.Name()); ok && conf.FeatureFlags.IsSet(flag) {
			logs.WithTag("level", l.Name).
				WithTag("module", m.Name()).
				Info("module disabled")
			continue
		}

		m.Init(l)
		r.modules = append(r.modules, m)
	}
	return r
}

// Modules returns the enabled modules.
func (r *Runner) Modules() []modules.Module {
	return r.modules
}

// Run dispatches the frames of the level to the modules until ctx is done or
// the level is closed. The level is closed and its modules released when Run
// returns.
func (r *Runner) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cancelFrames := r.level.HandleFrame(func(f models.Frame) {
		r.HandleFrame(ctx, f)
	})
	defer cancelFrames()

	go r.summary.startWorker(ctx)
	go func() {
		select {
		case <-ctx.Done():
			r.level.Close()
		case <-r.level.Unloaded():
		}
	}()

	logs.WithTag("level_id", r.level.ID).
		WithTag("level", r.level.Name).
		WithTag("modules", len(r.modules)).
		Info("level started")

	r.level.StartDispatchFrames()

	for _, m := range r.modules {
		m.Close()
	}
	r.summary.logSummary(nil)
}

// HandleFrame runs every module on f, then rebuilds the spatial index when
// the frame is due. It must be called from the frame goroutine.
func (r *Runner) HandleFrame(ctx context.Context, f models.Frame) {
	for _, m := range r.modules {
		err := measureLatency(r.level.Name, m.Name(), func() error {
			return m.HandleFrame(ctx, f)
		})
		if err != nil {
			logs.WithTag("level", r.level.Name).
				WithTag("module", m.Name()).
				WithTag("frame", f.Number).
				Error(errors.New("handling frame failed").Wrap(err))
			r.summary.incCounter(m.Name() + "_errors")
			continue
		}
		r.summary.incCounter(m.Name())
	}

	if r.rebuildInterval > 0 && f.Number%r.rebuildInterval == 0 {
		r.level.Spatial().Index.Rebuild()
		r.summary.incCounter("rebuilds")

		logs.WithTag("level", r.level.Name).
			WithTag("frame", f.Number).
			Debug("spatial index rebuilt")
	}
}

// Run binds the modules to l and runs it until ctx is done.
func Run(ctx context.Context, l *models.Level, conf Config) {
	New(l, conf).Run(ctx)
}
