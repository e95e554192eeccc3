package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"github.com/szgerii/Safari-sub001/featureflag"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/quadtree"
)

const debugTimeout = 5 * time.Second

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// QuadtreeDump is the debug view of the spatial index of a level.
type QuadtreeDump struct {
	LevelID   uint32              `json:"level_id"`
	LevelUUID string              `json:"level_uuid"`
	Level     string              `json:"level"`
	Info      quadtree.DebugInfo  `json:"info"`
	Nodes     []quadtree.NodeInfo `json:"nodes"`
}

// DumpQuadtree traverses the spatial index of l on its frame goroutine.
func DumpQuadtree(ctx context.Context, l *models.Level) (QuadtreeDump, error) {
	dump := QuadtreeDump{
		LevelID:   l.ID,
		LevelUUID: l.LevelUUID,
		Level:     l.Name,
	}

	err := l.Exec(ctx, func() {
		dump.Info = l.Spatial().Index.DebugInfo()
		dump.Nodes = l.Spatial().Index.Nodes()
	})
	return dump, err
}

// HandleQuadtreeDebug serves the spatial index of the level given by the
// "level" query parameter, or of every level when it is missing. It responds
// 404 when the DEBUG_QUADTREE flag is not set.
func HandleQuadtreeDebug(levels *models.LevelStore, flags featureflag.FeatureFlag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !flags.IsSet(featureflag.FlagDebugQuadtree) {
			http.NotFound(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), debugTimeout)
		defer cancel()

		targets := levels.List()
		if rawID := r.URL.Query().Get("level"); rawID != "" {
			id, err := strconv.ParseUint(rawID, 10, 32)
			if err != nil {
				http.Error(w, "invalid level id", http.StatusBadRequest)
				return
			}

			l, err := levels.Get(uint32(id))
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			targets = []*models.Level{l}
		}

		dumps := make([]QuadtreeDump, 0, len(targets))
		for _, l := range targets {
			dump, err := DumpQuadtree(ctx, l)
			if errors.IsType(err, models.ErrTypeLevelClosed) {
				continue
			}
			if err != nil {
				logs.WithTag("level_id", l.ID).
					Error(errors.New("dumping quadtree failed").Wrap(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			dumps = append(dumps, dump)
		}

		writeJSON(w, http.StatusOK, dumps)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logs.Warn(errors.New("encoding json response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
