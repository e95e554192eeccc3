package simulation

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	levelLabel   = "level"
	moduleLabel  = "module"
)

var (
	frameLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frame_latency",
		Help:    "The time a module takes to handle a frame.",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{
		levelLabel,
		moduleLabel,
	})

	frameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_errors",
		Help: "The errors that occured while a module handled a frame.",
	}, []string{
		levelLabel,
		moduleLabel,
		errTypeLabel,
	})
)

func measureLatency(level, module string, f func() error) error {
	start := time.Now()
	err := f()

	frameLatency.With(prometheus.Labels{
		levelLabel:  level,
		moduleLabel: module,
	}).Observe(time.Since(start).Seconds())

	if err != nil {
		frameErrors.With(prometheus.Labels{
			levelLabel:   level,
			moduleLabel:  module,
			errTypeLabel: errors.Type(err),
		}).Inc()
	}
	return err
}
