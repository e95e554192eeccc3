package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/szgerii/Safari-sub001/featureflag"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/quadtree"
	"golang.org/x/net/websocket"
)

func newTestLevels(t *testing.T) (*models.LevelStore, *models.Level) {
	t.Helper()

	var levels models.LevelStore
	conf := models.Config{
		Name:   "overlay_test",
		Bounds: quadtree.NewRect(0, 0, 200, 200),
		Quadtree: quadtree.Config{
			Capacity: 1,
			MaxDepth: 4,
		},
	}

	l := models.NewLevel(levels.NewID(), conf, 5*time.Millisecond, nil)
	l.AddEntity(models.NewEntity(l.NewEntityID(), models.KindAnimal, quadtree.NewRect(10, 10, 5, 5)))
	l.AddEntity(models.NewEntity(l.NewEntityID(), models.KindPlant, quadtree.NewRect(150, 150, 5, 5)))
	l.AddEntity(models.NewEntity(l.NewEntityID(), models.KindTourist, quadtree.NewRect(100, 100, 5, 5)))
	levels.Add(l)

	go l.StartDispatchFrames()
	t.Cleanup(func() { levels.Remove(l) })
	return &levels, l
}

func newTestOverlayServer(t *testing.T, h *OverlayHandler) string {
	t.Helper()

	server := httptest.NewServer(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			h.HandleConn(context.Background(), conn)
		},
	})
	t.Cleanup(server.Close)

	return strings.ReplaceAll(server.URL, "http://", "ws://")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, err := websocket.Dial(url, "", "http://localhost")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOverlayHandler(t *testing.T) {
	levels, l := newTestLevels(t)
	url := newTestOverlayServer(t, &OverlayHandler{
		Levels:       levels,
		FeatureFlags: featureflag.New([]string{string(featureflag.FlagDebugQuadtree)}),
		FrameStep:    2,
	})

	conn := dial(t, url+"/debug/overlay")
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var raw string
	err := websocket.Message.Receive(conn, &raw)
	require.NoError(t, err)

	var msg OverlayMsg
	err = json.Unmarshal([]byte(raw), &msg)
	require.NoError(t, err)

	require.Equal(t, MsgTypeOverlay, msg.Type)
	require.Equal(t, l.ID, msg.LevelID)
	require.Zero(t, msg.Frame%2)
	require.NotEmpty(t, msg.Nodes)
	require.Equal(t, l.Bounds(), msg.Nodes[0].Bounds)
	require.Len(t, msg.Entities, 2)
	for _, e := range msg.Entities {
		require.NotEqual(t, models.KindTourist, e.Kind)
	}
}

func TestOverlayHandlerWithoutFlag(t *testing.T) {
	levels, _ := newTestLevels(t)
	url := newTestOverlayServer(t, &OverlayHandler{
		Levels:       levels,
		FeatureFlags: featureflag.New(nil),
	})

	conn := dial(t, url+"/debug/overlay?level=1")
	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))

	var raw string
	err := websocket.Message.Receive(conn, &raw)
	require.Error(t, err)
	require.Empty(t, raw)
}

func TestOverlayHandlerUnknownLevel(t *testing.T) {
	levels, _ := newTestLevels(t)
	url := newTestOverlayServer(t, &OverlayHandler{
		Levels:       levels,
		FeatureFlags: featureflag.New([]string{string(featureflag.FlagDebugQuadtree)}),
	})

	conn := dial(t, url+"/debug/overlay?level=42")
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var raw string
	err := websocket.Message.Receive(conn, &raw)
	require.NoError(t, err)

	var msg ErrorMsg
	err = json.Unmarshal([]byte(raw), &msg)
	require.NoError(t, err)
	require.Equal(t, MsgTypeError, msg.Type)
	require.NotEmpty(t, msg.Error)
}
