// Package smoketest checks a freshly built quadtree against a brute force
// scan.
package smoketest

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"github.com/szgerii/Safari-sub001/quadtree"
)

const (
	ErrTypeInvalidRequest = "invalid_smoke_test_request"

	maxItems   = 100000
	maxQueries = 10000
	mapSize    = 4096
)

// Request describes a smoke test run.
type Request struct {
	Items    int   `json:"items"`
	Queries  int   `json:"queries"`
	Capacity int   `json:"capacity"`
	MaxDepth int   `json:"max_depth"`
	Seed     int64 `json:"seed"`
}

// Results is the report of a smoke test run.
type Results struct {
	Request

	Passed       bool          `json:"passed"`
	Mismatches   int           `json:"mismatches"`
	DepthReached int           `json:"depth_reached"`
	NodeCount    int           `json:"node_count"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

type Options struct {
	// Called with the results of every run. Optional.
	SendResult func(context.Context, Results) error
}

type smokeItem struct {
	bounds quadtree.Rect
}

func (it *smokeItem) Bounds() quadtree.Rect {
	return it.bounds
}

func (r Request) withDefaults() Request {
	if r.Items == 0 {
		r.Items = 1000
	}
	if r.Queries == 0 {
		r.Queries = 100
	}
	if r.Capacity == 0 {
		r.Capacity = 8
	}
	if r.MaxDepth == 0 {
		r.MaxDepth = 8
	}
	return r
}

func (r Request) validate() error {
	if r.Items < 0 || r.Items > maxItems {
		return errors.New("items out of range").
			WithType(ErrTypeInvalidRequest).
			WithTag("items", r.Items).
			WithTag("max", maxItems)
	}
	if r.Queries < 0 || r.Queries > maxQueries {
		return errors.New("queries out of range").
			WithType(ErrTypeInvalidRequest).
			WithTag("queries", r.Queries).
			WithTag("max", maxQueries)
	}

	conf := quadtree.Config{Capacity: r.Capacity, MaxDepth: r.MaxDepth}
	if err := conf.Validate(); err != nil {
		return errors.New("invalid quadtree configuration").
			WithType(ErrTypeInvalidRequest).
			Wrap(err)
	}
	return nil
}

// Run builds an index from req and checks that queries return the same items
// as a brute force scan, after insertions and after removing half of the
// items, and that no node is deeper than the max depth.
func Run(ctx context.Context, req Request) (res Results, err error) {
	req = req.withDefaults()
	res.Request = req
	if err := req.validate(); err != nil {
		return res, err
	}

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	rng := rand.New(rand.NewSource(req.Seed))
	mapBounds := quadtree.NewRect(0, 0, mapSize, mapSize)

	idx := quadtree.NewBounded[*smokeItem](quadtree.WithName("smoke_test"))
	idx.Init(mapBounds, req.Capacity, req.MaxDepth)

	items := make([]*smokeItem, req.Items)
	for i := range items {
		w, h := rng.Float64()*64, rng.Float64()*64
		if i%16 == 0 {
			w, h = 0, 0
		}
		items[i] = &smokeItem{
			bounds: quadtree.NewRect(rng.Float64()*(mapSize-w), rng.Float64()*(mapSize-h), w, h),
		}
		idx.Insert(items[i])
	}

	check := func(live []*smokeItem) error {
		for q := 0; q < req.Queries; q++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			size := rng.Float64() * mapSize / 4
			area := quadtree.NewRect(rng.Float64()*(mapSize-size), rng.Float64()*(mapSize-size), size, size)
			res.Mismatches += mismatches(idx.Query(area), bruteForce(live, area))
		}
		return nil
	}

	if err := check(items); err != nil {
		return res, err
	}

	half := len(items) / 2
	for _, it := range items[:half] {
		idx.Remove(it)
	}
	if err := check(items[half:]); err != nil {
		return res, err
	}

	info := idx.DebugInfo()
	res.DepthReached = info.DepthReached
	res.NodeCount = info.NodeCount

	for _, it := range items[half:] {
		idx.Remove(it)
	}

	res.Passed = res.Mismatches == 0 &&
		res.DepthReached <= req.MaxDepth &&
		idx.Len() == 0 &&
		len(idx.Query(mapBounds)) == 0
	return res, nil
}

func bruteForce(items []*smokeItem, area quadtree.Rect) map[*smokeItem]struct{} {
	found := make(map[*smokeItem]struct{})
	for _, it := range items {
		if it.bounds.Intersects(area) {
			found[it] = struct{}{}
		}
	}
	return found
}

func mismatches(got []*smokeItem, expected map[*smokeItem]struct{}) int {
	n := 0
	seen := make(map[*smokeItem]struct{}, len(got))
	for _, it := range got {
		if _, ok := expected[it]; !ok {
			n++
		}
		if _, dup := seen[it]; dup {
			n++
		}
		seen[it] = struct{}{}
	}
	for it := range expected {
		if _, ok := seen[it]; !ok {
			n++
		}
	}
	return n
}

// HandleSmokeTest runs a smoke test from a JSON request body and responds
// with its results.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
		}

		res, err := Run(r.Context(), req)
		if errors.IsType(err, ErrTypeInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			res.Error = err.Error()
			logs.Warn(err)
		}

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("seed", res.Seed).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		body, err := json.Marshal(res)
		if err != nil {
			logs.Warn(errors.New("encoding smoke test result failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if !res.Passed {
			status = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	}
}
