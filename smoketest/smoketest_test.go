package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		res, err := Run(context.Background(), Request{Seed: 1})
		require.NoError(t, err)
		require.True(t, res.Passed)
		require.Zero(t, res.Mismatches)
		require.Equal(t, 1000, res.Items)
		require.LessOrEqual(t, res.DepthReached, res.MaxDepth)
		require.NotZero(t, res.Duration)
	})

	t.Run("shallow tree", func(t *testing.T) {
		res, err := Run(context.Background(), Request{
			Items:    2000,
			Queries:  50,
			Capacity: 1,
			MaxDepth: 2,
			Seed:     7,
		})
		require.NoError(t, err)
		require.True(t, res.Passed)
		require.Equal(t, 2, res.DepthReached)
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := Run(context.Background(), Request{Capacity: -1})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidRequest))

		_, err = Run(context.Background(), Request{Items: maxItems + 1})
		require.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := Run(ctx, Request{})
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, res.Passed)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	var sent []Results
	h := HandleSmokeTest(context.Background(), Options{
		SendResult: func(ctx context.Context, res Results) error {
			sent = append(sent, res)
			return nil
		},
	})

	t.Run("success", func(t *testing.T) {
		body, err := json.Marshal(Request{Items: 300, Queries: 20, Seed: 3})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		var res Results
		err = json.Unmarshal(w.Body.Bytes(), &res)
		require.NoError(t, err)
		require.True(t, res.Passed)
		require.Equal(t, 300, res.Items)
		require.Len(t, sent, 1)
	})

	t.Run("bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte(`{"max_depth":-3}`))))
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte(`{"max_depth":16777216}`))))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
