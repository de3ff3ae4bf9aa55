package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/jamesruggles/alertavecinal/internal/intake"
)

const writeTimeout = 5 * time.Second

// SubscriberGauge tracks open feed connections. *metrics.Metrics satisfies it.
type SubscriberGauge interface {
	SubscriberAdded()
	SubscriberRemoved()
}

// Hub fans feed events out to websocket clients. Topic 0 is the alert feed
// of the authorities panel; topic N follows the track of report N.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*websocket.Conn]struct{}
	gauge   SubscriberGauge
	logger  *slog.Logger
}

func NewHub(gauge SubscriberGauge, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[int64]map[*websocket.Conn]struct{}),
		gauge:   gauge,
		logger:  logger,
	}
}

func (h *Hub) Subscribe(topic int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*websocket.Conn]struct{})
	}
	if _, ok := h.clients[topic][conn]; ok {
		return
	}
	h.clients[topic][conn] = struct{}{}
	if h.gauge != nil {
		h.gauge.SubscriberAdded()
	}
}

func (h *Hub) Unsubscribe(topic int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[topic]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, topic)
	}
	if h.gauge != nil {
		h.gauge.SubscriberRemoved()
	}
}

// Subscribers reports how many connections follow topic.
func (h *Hub) Subscribers(topic int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) Broadcast(topic int64, ev intake.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[topic]))
	for c := range h.clients[topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode feed event", "type", ev.Type, "error", err)
		return
	}

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug("ws write error", "topic", topic, "error", err)
			h.Unsubscribe(topic, conn)
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[int64]map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for conn := range conns {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			if h.gauge != nil {
				h.gauge.SubscriberRemoved()
			}
		}
	}
}

type wsSubscribeMsg struct {
	ReportID int64 `json:"report_id"`
}

// originPatterns turns FRONTEND_ORIGIN into the host patterns the websocket
// handshake checks.
func originPatterns(origin string) []string {
	var out []string
	for _, o := range splitOrigins(origin) {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.cfg.Server.FrontendOrigin),
	})
	if err != nil {
		s.logger.Error("ws accept error", "error", err)
		return
	}
	defer conn.CloseNow()

	// The first message picks the topic.
	_, data, err := conn.Read(r.Context())
	if err != nil {
		return
	}

	var msg wsSubscribeMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.ReportID < 0 {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid subscribe message")
		return
	}

	s.hub.Subscribe(msg.ReportID, conn)
	defer s.hub.Unsubscribe(msg.ReportID, conn)

	ack, _ := json.Marshal(map[string]any{"type": "subscribed", "report_id": msg.ReportID})
	if err := conn.Write(r.Context(), websocket.MessageText, ack); err != nil {
		return
	}

	// Clients only listen; keep reading until they go away.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}
