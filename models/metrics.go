package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	levelLabel = "level"
	kindLabel  = "kind"
)

var (
	levelCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "level_count",
		Help: "The number of loaded levels.",
	}, []string{levelLabel})

	levelCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "level_count_total",
		Help: "The total number of loaded levels.",
	}, []string{levelLabel})

	levelEntities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "level_entities",
		Help: "The number of entities registered in loaded levels.",
	}, []string{levelLabel, kindLabel})
)

func instrumentIncreaseLevelGauge(level string) {
	levelCount.
		With(prometheus.Labels{levelLabel: level}).
		Inc()
}

func instrumentDecreaseLevelGauge(level string) {
	levelCount.
		With(prometheus.Labels{levelLabel: level}).
		Dec()
}

func instrumentCountLevel(level string) {
	levelCountTotal.
		With(prometheus.Labels{levelLabel: level}).
		Inc()
}

func instrumentIncreaseEntityGauge(level string, kind EntityKind) {
	levelEntities.
		With(prometheus.Labels{levelLabel: level, kindLabel: kind.String()}).
		Inc()
}

func instrumentDecreaseEntityGauge(level string, kind EntityKind) {
	levelEntities.
		With(prometheus.Labels{levelLabel: level, kindLabel: kind.String()}).
		Dec()
}
