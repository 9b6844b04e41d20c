// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package planclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plansync/plansync/models"
	"github.com/plansync/plansync/realtime"
)

// Reconnection defaults, matching the live channel's intended policy:
// bounded attempts with increasing delay up to a ceiling, then give up
// and use the fallback API for the rest of the session.
const (
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectDelay       = time.Second
	DefaultMaxReconnectDelay    = 5 * time.Second
)

// ErrOffline is returned by Connect once reconnection has been abandoned for the session.
var ErrOffline = errors.New("live channel offline")

// Config configures a Client. ServerURL is the http(s) base URL of the
// server; the live channel is derived from it.
type Config struct {
	ServerURL            string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	HTTPClient           *http.Client
}

// Client keeps one viewer's state in sync with the server. It holds a
// committed view per plan, replaced only by authoritative messages, and a
// transient pending overlay applied optimistically on user actions and
// cleared by the next authoritative message for that plan.
type Client struct {
	cfg     Config
	httpc   *http.Client
	baseURL string
	wsURL   string

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	offline     bool
	closed      bool
	joined      map[string]bool
	committed   map[string]*models.PlanView
	pending     map[string]*models.PlanView
	deleteStash map[string]planStash

	registered      map[string]bool
	onPlanUpdated   func(realtime.PlanUpdatedPayload)
	onPlanDeleted   func(realtime.PlanDeletedPayload)
	onDeleteSuccess func(realtime.PlanDeleteSuccessPayload)
	onActionError   func(event, message string)
	onOffline       func()

	writeMu sync.Mutex
}

// planStash preserves a plan's local state while its deletion is in
// flight, so a rejected delete can put the view back.
type planStash struct {
	committed    *models.PlanView
	pending      *models.PlanView
	hadCommitted bool
	hadPending   bool
}

// New creates a disconnected client. Call Connect to open the live
// channel; without it every action goes through the fallback API.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid server URL %q", cfg.ServerURL)
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 20 * time.Second}
	}

	base := strings.TrimRight(cfg.ServerURL, "/")
	return &Client{
		cfg:        cfg,
		httpc:      httpc,
		baseURL:    base,
		wsURL:      "ws" + strings.TrimPrefix(base, "http") + "/ws",
		joined:      make(map[string]bool),
		committed:   make(map[string]*models.PlanView),
		pending:     make(map[string]*models.PlanView),
		deleteStash: make(map[string]planStash),
		registered:  make(map[string]bool),
	}, nil
}

// Connect opens the live channel and starts the read loop. Returns
// ErrOffline if the client has already given up reconnecting.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.offline {
		c.mu.Unlock()
		return ErrOffline
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial live channel: %w", err)
	}
	c.attach(conn)
	return nil
}

// attach installs a fresh connection, re-subscribes the joined rooms, and
// starts reading. Room membership is server-side ephemeral, so every
// (re)connect explicitly re-joins. Broadcasts missed while disconnected
// are unrecoverable, so each re-joined plan is also refetched to
// resynchronize the committed view.
func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	rooms := make([]string, 0, len(c.joined))
	for planID := range c.joined {
		rooms = append(rooms, planID)
	}
	c.mu.Unlock()

	for _, planID := range rooms {
		_ = c.send(realtime.EventJoinPlan, realtime.RoomPayload{PlanID: planID})
		_ = c.RefreshPlan(context.Background(), planID)
	}
	go c.readLoop(conn)
}

// Close shuts the client down; it will not reconnect.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Connected reports whether the live channel is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Offline reports whether reconnection has been abandoned for this session.
func (c *Client) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		c.dispatch(msg)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
	}
	closed := c.closed
	c.mu.Unlock()
	_ = conn.Close()

	if !closed {
		go c.reconnectLoop()
	}
}

// reconnectLoop retries with increasing backoff up to the ceiling, then
// marks the session offline for good.
func (c *Client) reconnectLoop() {
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		delay := time.Duration(attempt) * c.cfg.ReconnectDelay
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
		time.Sleep(delay)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(c.wsURL, nil)
		if err == nil {
			c.attach(conn)
			return
		}
	}

	c.mu.Lock()
	c.offline = true
	handler := c.onOffline
	c.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (c *Client) dispatch(msg realtime.Message) {
	switch msg.Type {
	case realtime.EventPlanUpdated:
		var p realtime.PlanUpdatedPayload
		if json.Unmarshal(msg.Data, &p) != nil || p.Plan == nil {
			return
		}
		c.mu.Lock()
		// Authoritative message: replace the committed view wholesale and
		// drop any optimistic overlay for this plan.
		c.committed[p.PlanID] = p.Plan
		delete(c.pending, p.PlanID)
		handler := c.onPlanUpdated
		c.mu.Unlock()
		if handler != nil {
			handler(p)
		}

	case realtime.EventPlanDeleted:
		var p realtime.PlanDeletedPayload
		if json.Unmarshal(msg.Data, &p) != nil {
			return
		}
		c.mu.Lock()
		delete(c.committed, p.PlanID)
		delete(c.pending, p.PlanID)
		delete(c.deleteStash, p.PlanID)
		delete(c.joined, p.PlanID)
		handler := c.onPlanDeleted
		c.mu.Unlock()
		if handler != nil {
			handler(p)
		}

	case realtime.EventPlanDeleteSuccess:
		var p realtime.PlanDeleteSuccessPayload
		if json.Unmarshal(msg.Data, &p) != nil {
			return
		}
		c.mu.Lock()
		delete(c.deleteStash, p.PlanID)
		handler := c.onDeleteSuccess
		c.mu.Unlock()
		if handler != nil {
			handler(p)
		}

	case realtime.EventVoteError, realtime.EventCommentError, realtime.EventPlanDeleteError:
		var e models.ErrorResponse
		if json.Unmarshal(msg.Data, &e) != nil {
			return
		}
		c.mu.Lock()
		// The action was rejected; drop optimistic overlays so the view
		// falls back to the last committed state.
		c.pending = make(map[string]*models.PlanView)
		if msg.Type == realtime.EventPlanDeleteError {
			// A rejected deletion puts the stashed view back.
			for planID, st := range c.deleteStash {
				if st.hadCommitted {
					c.committed[planID] = st.committed
				}
				if st.hadPending {
					c.pending[planID] = st.pending
				}
				delete(c.deleteStash, planID)
			}
		}
		handler := c.onActionError
		c.mu.Unlock()
		if handler != nil {
			handler(msg.Type, e.Error)
		}
	}
}

// send writes one event to the live channel.
func (c *Client) send(eventType string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	msg, err := realtime.NewMessage(eventType, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// Handler registration. Registering the same event twice is a no-op so an
// event is never delivered to two handlers.

func (c *Client) OnPlanUpdated(fn func(realtime.PlanUpdatedPayload)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered[realtime.EventPlanUpdated] {
		return
	}
	c.registered[realtime.EventPlanUpdated] = true
	c.onPlanUpdated = fn
}

func (c *Client) OnPlanDeleted(fn func(realtime.PlanDeletedPayload)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered[realtime.EventPlanDeleted] {
		return
	}
	c.registered[realtime.EventPlanDeleted] = true
	c.onPlanDeleted = fn
}

func (c *Client) OnPlanDeleteSuccess(fn func(realtime.PlanDeleteSuccessPayload)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered[realtime.EventPlanDeleteSuccess] {
		return
	}
	c.registered[realtime.EventPlanDeleteSuccess] = true
	c.onDeleteSuccess = fn
}

// OnActionError receives unicast rejection events (vote-error,
// comment-error, plan-delete-error).
func (c *Client) OnActionError(fn func(event, message string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered["action-error"] {
		return
	}
	c.registered["action-error"] = true
	c.onActionError = fn
}

// OnOffline fires once when reconnection is abandoned.
func (c *Client) OnOffline(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered["offline"] {
		return
	}
	c.registered["offline"] = true
	c.onOffline = fn
}

// JoinPlan subscribes to a plan's room (now, and again after reconnects).
func (c *Client) JoinPlan(planID string) {
	c.mu.Lock()
	c.joined[planID] = true
	connected := c.connected
	c.mu.Unlock()
	if connected {
		_ = c.send(realtime.EventJoinPlan, realtime.RoomPayload{PlanID: planID})
	}
}

// LeavePlan unsubscribes from a plan's room.
func (c *Client) LeavePlan(planID string) {
	c.mu.Lock()
	delete(c.joined, planID)
	connected := c.connected
	c.mu.Unlock()
	if connected {
		_ = c.send(realtime.EventLeavePlan, realtime.RoomPayload{PlanID: planID})
	}
}

// View returns the plan as this viewer should currently see it: the
// optimistic overlay when one is in flight, else the committed state.
// Returns nil for unknown plans. The returned view must be treated as
// read-only; it is replaced, never patched, on updates.
func (c *Client) View(planID string) *models.PlanView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pv, ok := c.pending[planID]; ok {
		return pv
	}
	return c.committed[planID]
}
