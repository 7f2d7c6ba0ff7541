package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/osimia/algoridmi/internal/arena"
	"github.com/osimia/algoridmi/internal/auth"
	"github.com/osimia/algoridmi/internal/leaderboard"
)

const (
	MsgSubscribe  = "subscribe"
	MsgSubscribed = "subscribed"
	MsgStandings  = "standings"
	MsgAwards     = "awards"
	MsgAward      = "award"
	MsgError      = "error"
)

// WSMessage is the envelope for all WebSocket communication.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one connected learner watching a division.
type Client struct {
	ID       int64
	Division arena.Division
	conn     *websocket.Conn
	send     chan WSMessage
}

// Hub fans arena events out to the clients subscribed to each division.
type Hub struct {
	mu           sync.RWMutex
	clients      map[int64]*Client
	divisions    map[arena.Division]map[int64]*Client
	secret       string
	pingInterval time.Duration
	metrics      *Metrics
	logger       *slog.Logger
}

func NewHub(secret string, pingInterval time.Duration, metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[int64]*Client),
		divisions:    make(map[arena.Division]map[int64]*Client),
		secret:       secret,
		pingInterval: pingInterval,
		metrics:      metrics,
		logger:       logger,
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _, err := auth.Validate(r.URL.Query().Get("token"), h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("ws accept", "err", err)
		return
	}

	client := &Client{
		ID:   userID,
		conn: conn,
		send: make(chan WSMessage, 64),
	}

	h.register(client)
	defer h.unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writePump(ctx, client)
	h.readPump(ctx, client)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.ID]; ok {
		h.detach(old)
		close(old.send)
	}
	h.clients[c.ID] = c
	h.metrics.IncrWSConn()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A reconnect may already have replaced this client.
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		h.detach(c)
		close(c.send)
	}
	h.metrics.DecrWSConn()
}

// detach removes c from its division group. Callers hold h.mu.
func (h *Hub) detach(c *Client) {
	if c.Division == "" {
		return
	}
	if group, ok := h.divisions[c.Division]; ok && group[c.ID] == c {
		delete(group, c.ID)
		if len(group) == 0 {
			delete(h.divisions, c.Division)
		}
	}
}

// Subscribe moves a client to the broadcast group of d.
func (h *Hub) Subscribe(clientID int64, d arena.Division) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	h.detach(c)
	c.Division = d
	if _, ok := h.divisions[d]; !ok {
		h.divisions[d] = make(map[int64]*Client)
	}
	h.divisions[d][c.ID] = c
}

// BroadcastDivision sends a message to every client watching d.
func (h *Hub) BroadcastDivision(d arena.Division, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.divisions[d] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full", "client", c.ID)
		}
	}
}

// SendTo sends a message to a specific client.
func (h *Hub) SendTo(clientID int64, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Dispatch relays an announced arena event to the connected clients.
// Awards go to each division's watchers and to every winner directly.
func (h *Hub) Dispatch(ev leaderboard.Event) {
	h.metrics.IncrRelayed()
	switch ev.Type {
	case leaderboard.EventStandings:
		h.BroadcastDivision(ev.Division, envelope(MsgStandings, ev.Standings))
	case leaderboard.EventAwards:
		byDivision := make(map[arena.Division][]arena.Award)
		for _, a := range ev.Awards {
			byDivision[a.Division] = append(byDivision[a.Division], a)
			h.SendTo(a.UserID, envelope(MsgAward, a))
		}
		for d, awards := range byDivision {
			h.BroadcastDivision(d, envelope(MsgAwards, awards))
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		if err := c.conn.CloseNow(); err != nil {
			h.logger.Debug("close conn", "err", err)
		}
	}()
	for {
		var msg WSMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return
		}
		h.handleMessage(c, msg)
	}
}

func (h *Hub) handleMessage(c *Client, msg WSMessage) {
	switch msg.Type {
	case MsgSubscribe:
		var req struct {
			Division string `json:"division"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.SendTo(c.ID, envelope(MsgError, "bad payload"))
			return
		}
		d, err := arena.ParseDivision(req.Division)
		if err != nil {
			h.SendTo(c.ID, envelope(MsgError, err.Error()))
			return
		}
		h.Subscribe(c.ID, d)
		h.SendTo(c.ID, envelope(MsgSubscribed, d))
	default:
		h.SendTo(c.ID, envelope(MsgError, "unknown message type"))
	}
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, c.conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func envelope(typ string, v any) WSMessage {
	raw, _ := json.Marshal(v)
	return WSMessage{Type: typ, Payload: raw}
}
