package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/quadtree"
)

type summary struct {
	level    *models.Level
	interval time.Duration

	counterMutex sync.Mutex
	counter      map[string]int
}

func newSummary(l *models.Level, interval time.Duration) *summary {
	return &summary{
		level:    l,
		interval: interval,
		counter:  make(map[string]int),
	}
}

func (s *summary) incCounter(key string) {
	s.counterMutex.Lock()
	defer s.counterMutex.Unlock()

	s.counter[key]++
}

func (s *summary) startWorker(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			var info quadtree.DebugInfo
			err := s.level.Exec(ctx, func() {
				info = s.level.Spatial().Index.DebugInfo()
			})
			if err != nil {
				s.logSummary(nil)
				continue
			}
			s.logSummary(&info)
		}
	}
}

// logSummary logs and resets the counters. Index stats are added when info
// is not nil.
func (s *summary) logSummary(info *quadtree.DebugInfo) {
	s.counterMutex.Lock()
	defer s.counterMutex.Unlock()

	if len(s.counter) == 0 {
		return
	}

	entry := logs.WithTag("level_id", s.level.ID).
		WithTag("level_uuid", s.level.LevelUUID).
		WithTag("level", s.level.Name).
		WithTag("time_interval", s.interval)

	if info != nil {
		entry = entry.
			WithTag("index_items", info.ItemCount).
			WithTag("index_nodes", info.NodeCount).
			WithTag("index_depth", info.DepthReached).
			WithTag("index_straddlers", info.StraddlerCount)
	}

	for k, v := range s.counter {
		entry = entry.WithTag(k, v)
		delete(s.counter, k)
	}

	entry.Info("frame summary")
}
