package collision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var candidatePairs = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "collision_candidate_pairs",
	Help: "The number of broad phase candidate pairs found in the last frame.",
}, []string{"level"})

func instrumentCandidatePairs(level string, n int) {
	candidatePairs.
		With(prometheus.Labels{"level": level}).
		Set(float64(n))
}
