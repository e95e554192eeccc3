// Package websocket streams the spatial index of running levels to debug
// overlay clients.
package websocket

import (
	"context"
	"io"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/szgerii/Safari-sub001/featureflag"
	"github.com/szgerii/Safari-sub001/models"
	"github.com/szgerii/Safari-sub001/quadtree"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize = 64

	MsgTypeOverlay = "overlay"
	MsgTypeError   = "error"
)

// OverlayMsg is the state of a spatial index at a given frame.
type OverlayMsg struct {
	Type     string              `json:"type"`
	LevelID  uint32              `json:"level_id"`
	Frame    uint64              `json:"frame"`
	Nodes    []quadtree.NodeInfo `json:"nodes"`
	Entities []models.EntityInfo `json:"entities"`
}

// ErrorMsg is sent before closing a connection that cannot be served.
type ErrorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// OverlayHandler serves overlay connections. The level is picked with the
// "level" query parameter and defaults to the first loaded level.
type OverlayHandler struct {
	Levels       *models.LevelStore
	FeatureFlags featureflag.FeatureFlag

	// Streams one frame out of FrameStep. Zero or one streams every frame.
	FrameStep uint64
}

// HandleConn streams frames to conn until the client leaves, ctx is done or
// the level is unloaded. Nothing is traversed while the DEBUG_QUADTREE flag is
// not set.
func (h *OverlayHandler) HandleConn(ctx context.Context, conn *websocket.Conn) {
	clientID := uuid.NewString()

	level, err := h.level(conn)
	if err != nil {
		logs.WithTag("client_id", clientID).Warn(err)
		sendJSON(conn, "", MsgTypeError, ErrorMsg{Type: MsgTypeError, Error: err.Error()})
		return
	}

	instrumentConnect(level.Name)
	defer instrumentDisconnect(level.Name)

	logs.WithTag("client_id", clientID).
		WithTag("level_id", level.ID).
		WithTag("level", level.Name).
		Info("overlay client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		io.Copy(io.Discard, conn)
	}()

	sendChan := make(chan []byte, sendChanSize)
	step := max(h.FrameStep, 1)

	cancelFrames := level.HandleFrame(func(f models.Frame) {
		if !h.FeatureFlags.IsSet(featureflag.FlagDebugQuadtree) || f.Number%step != 0 {
			return
		}

		b, err := json.Marshal(newOverlayMsg(level, f))
		if err != nil {
			logs.WithTag("client_id", clientID).
				Warn(errors.New("encoding overlay message failed").Wrap(err))
			return
		}

		select {
		case sendChan <- b:
		default:
			instrumentDrop(level.Name, MsgTypeOverlay)
		}
	})
	defer cancelFrames()

	for {
		select {
		case <-ctx.Done():
			logs.WithTag("client_id", clientID).
				WithTag("level_id", level.ID).
				Info("overlay client disconnected")
			return

		case <-level.Unloaded():
			logs.WithTag("client_id", clientID).
				WithTag("level_id", level.ID).
				Info("overlay level unloaded")
			return

		case b := <-sendChan:
			err := websocket.Message.Send(conn, string(b))
			instrumentSend(level.Name, MsgTypeOverlay, len(b), err)
			if err != nil {
				logs.WithTag("client_id", clientID).
					WithTag("level_id", level.ID).
					Error(errors.New("sending overlay message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *OverlayHandler) level(conn *websocket.Conn) (*models.Level, error) {
	rawID := conn.Request().URL.Query().Get("level")
	if rawID == "" {
		levels := h.Levels.List()
		if len(levels) == 0 {
			return nil, errors.New("no level is loaded").
				WithType(models.ErrTypeLevelNotFound)
		}
		return levels[0], nil
	}

	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		return nil, errors.New("invalid level id").
			WithTag("level", rawID).
			Wrap(err)
	}
	return h.Levels.Get(uint32(id))
}

// newOverlayMsg must be called from the frame goroutine.
func newOverlayMsg(l *models.Level, f models.Frame) OverlayMsg {
	idx := l.Spatial().Index

	msg := OverlayMsg{
		Type:     MsgTypeOverlay,
		LevelID:  l.ID,
		Frame:    f.Number,
		Nodes:    idx.Nodes(),
		Entities: make([]models.EntityInfo, 0, idx.Len()),
	}

	idx.Traverse(func(n *quadtree.Node[*models.Entity]) {
		for _, e := range n.Items() {
			msg.Entities = append(msg.Entities, e.Info())
		}
	})
	return msg
}

func sendJSON(conn *websocket.Conn, level, msgType string, v any) {
	b, err := json.Marshal(v)
	if err == nil {
		err = websocket.Message.Send(conn, string(b))
	}
	instrumentSend(level, msgType, len(b), err)
}
