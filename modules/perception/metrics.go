package perception

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "perception_detections_total",
	Help: "The number of poachers seen by rangers.",
}, []string{"level"})

func instrumentDetection(level string) {
	detectionsTotal.
		With(prometheus.Labels{"level": level}).
		Inc()
}
