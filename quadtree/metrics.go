package quadtree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel = "index"
)

var (
	quadtreeItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_items",
		Help: "The number of items indexed.",
	}, []string{indexLabel})

	quadtreeNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadtree_nodes",
		Help: "The number of nodes, leaves included.",
	}, []string{indexLabel})

	quadtreeInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_inserts_total",
		Help: "The total number of items inserted.",
	}, []string{indexLabel})

	quadtreeRemoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_removes_total",
		Help: "The total number of items removed.",
	}, []string{indexLabel})

	quadtreeOutOfBounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_out_of_bounds_total",
		Help: "The total number of inserts dropped because the item was outside the map bounds.",
	}, []string{indexLabel})

	quadtreeRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_rebuilds_total",
		Help: "The total number of full index rebuilds.",
	}, []string{indexLabel})
)

// indexMetrics holds the series of one index so the hot paths do not resolve
// labels on every call.
type indexMetrics struct {
	items       prometheus.Gauge
	nodes       prometheus.Gauge
	inserts     prometheus.Counter
	removes     prometheus.Counter
	outOfBounds prometheus.Counter
	rebuilds    prometheus.Counter
}

func newIndexMetrics(name string) indexMetrics {
	labels := prometheus.Labels{indexLabel: name}

	return indexMetrics{
		items:       quadtreeItems.With(labels),
		nodes:       quadtreeNodes.With(labels),
		inserts:     quadtreeInserts.With(labels),
		removes:     quadtreeRemoves.With(labels),
		outOfBounds: quadtreeOutOfBounds.With(labels),
		rebuilds:    quadtreeRebuilds.With(labels),
	}
}

func (m indexMetrics) instrumentSize(items, nodes int) {
	m.items.Set(float64(items))
	m.nodes.Set(float64(nodes))
}
