package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
	levelLabel   = "level"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected overlay clients.",
	}, []string{
		levelLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	}, []string{
		levelLabel,
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{
		levelLabel,
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	}, []string{
		levelLabel,
		errTypeLabel,
		msgTypeLabel,
	})

	wsDroppedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_msgs",
		Help: "The number of messages dropped because a client was too slow.",
	}, []string{
		levelLabel,
		msgTypeLabel,
	})
)

func instrumentConnect(level string) {
	wsConnectedClients.
		With(prometheus.Labels{levelLabel: level}).
		Inc()
}

func instrumentDisconnect(level string) {
	wsConnectedClients.
		With(prometheus.Labels{levelLabel: level}).
		Dec()
}

func instrumentSend(level, msgType string, n int, err error) {
	if err != nil {
		wsSendError.
			With(prometheus.Labels{
				levelLabel:   level,
				errTypeLabel: errors.Type(err),
				msgTypeLabel: msgType,
			}).
			Inc()
		return
	}

	wsSentMsgs.
		With(prometheus.Labels{
			levelLabel:   level,
			msgTypeLabel: msgType,
		}).
		Inc()
	wsSentBytes.
		With(prometheus.Labels{
			levelLabel:   level,
			msgTypeLabel: msgType,
		}).
		Add(float64(n))
}

func instrumentDrop(level, msgType string) {
	wsDroppedMsgs.
		With(prometheus.Labels{
			levelLabel:   level,
			msgTypeLabel: msgType,
		}).
		Inc()
}
