package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/events"
	"github.com/mcdev12/presence/go/internal/models"
	"github.com/mcdev12/presence/go/internal/sharedstate"
)

var ErrNotJoined = errors.New("join before publishing")

// ConnectionManager manages WebSocket connections grouped by server. Each
// server with at least one connection holds exactly one backend
// subscription, shared by all of its connections.
type ConnectionManager struct {
	channel  sharedstate.Channel
	config   ConnectionConfig
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	rooms   map[string]*room
	holders map[actorKey]int // joined connections per actor entry
	baseCtx context.Context
}

// actorKey names one actor entry in the shared state
type actorKey struct {
	serverID string
	actorID  string
}

// room is the set of connections watching one server
type room struct {
	serverID string
	conns    map[*Connection]bool
	snapshot models.Snapshot
	frame    []byte

	subMu  sync.Mutex
	sub    sharedstate.Subscription
	closed bool
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	ActorID  string
	ServerID string
	Conn     *websocket.Conn

	manager *ConnectionManager
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	joined bool
	closed bool

	ConnectedAt time.Time
}

func NewConnectionManager(channel sharedstate.Channel, config ConnectionConfig, metrics *Metrics) *ConnectionManager {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &ConnectionManager{
		channel: channel,
		config:  config,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		rooms:   map[string]*room{},
		holders: map[actorKey]int{},
		baseCtx: context.Background(),
	}
}

// Start binds connection lifetimes to ctx and closes every connection once
// ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.mu.Lock()
	cm.baseCtx = ctx
	cm.mu.Unlock()
	log.Info().Msg("connection manager started")

	<-ctx.Done()
	log.Info().Msg("connection manager shutting down")
	cm.CloseAll()
}

func (cm *ConnectionManager) context() context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.baseCtx
}

// UpgradeConnection upgrades an HTTP connection to WebSocket, greets the
// client and attaches it to the server's room
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, actorID, serverID string) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connCtx, cancel := context.WithCancel(cm.context())
	c := &Connection{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		ServerID:    serverID,
		Conn:        ws,
		manager:     cm,
		send:        make(chan []byte, cm.config.SendBuffer),
		done:        make(chan struct{}),
		ctx:         connCtx,
		cancel:      cancel,
		ConnectedAt: time.Now(),
	}
	cm.metrics.ConnectionsOpened.Add(1)

	welcome, err := events.Encode(events.TypeWelcome, events.WelcomePayload{ActorID: actorID, Server: serverID})
	if err != nil {
		c.shutdown("encode welcome")
		return err
	}
	c.enqueue(welcome)

	if err := cm.register(c); err != nil {
		if frame, encErr := events.Encode(events.TypeError, events.ErrorPayload{Message: "server " + serverID + " is unavailable"}); encErr == nil {
			ws.SetWriteDeadline(time.Now().Add(cm.config.WriteTimeout))
			_ = ws.WriteMessage(websocket.TextMessage, frame)
		}
		c.shutdown("subscribe failed")
		return err
	}

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("actor_id", actorID).
		Str("server_id", serverID).
		Msg("WebSocket connection established")
	return nil
}

// register adds c to its room, subscribing to the backend when c is the
// room's first connection
func (cm *ConnectionManager) register(c *Connection) error {
	cm.mu.Lock()
	r, ok := cm.rooms[c.ServerID]
	if !ok {
		r = &room{serverID: c.ServerID, conns: map[*Connection]bool{}}
		cm.rooms[c.ServerID] = r
	}
	r.conns[c] = true
	frame := r.frame
	cm.mu.Unlock()

	if frame != nil {
		c.enqueue(frame)
	}

	r.subMu.Lock()
	if r.sub != nil || r.closed {
		r.subMu.Unlock()
		return nil
	}
	// The subscription outlives c, so it is bound to the manager
	sub, err := cm.channel.Subscribe(cm.context(), c.ServerID, func(s models.Snapshot) {
		cm.broadcast(r, s)
	})
	if err == nil {
		r.sub = sub
	}
	r.subMu.Unlock()

	if err != nil {
		cm.metrics.BackendErrors.Add(1)
		log.Error().Err(err).Str("server_id", c.ServerID).Msg("failed to subscribe to server")
		cm.unregister(c)
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Debug().Str("server_id", c.ServerID).Msg("server subscription opened")
	return nil
}

// unregister removes c from its room and drops the room's subscription once
// the room is empty
func (cm *ConnectionManager) unregister(c *Connection) {
	cm.mu.Lock()
	r, ok := cm.rooms[c.ServerID]
	if !ok || !r.conns[c] {
		cm.mu.Unlock()
		return
	}
	delete(r.conns, c)
	empty := len(r.conns) == 0
	if empty {
		delete(cm.rooms, c.ServerID)
	}
	cm.mu.Unlock()

	if !empty {
		return
	}
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.closed = true
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("server_id", r.serverID).Msg("failed to close server subscription")
		}
		r.sub = nil
		log.Debug().Str("server_id", r.serverID).Msg("server subscription closed")
	}
}

// broadcast sends one snapshot to every connection of the room. Connections
// whose send buffer is full are closed.
func (cm *ConnectionManager) broadcast(r *room, s models.Snapshot) {
	frame, err := events.Encode(events.TypeSnapshot, events.SnapshotPayload{Server: r.serverID, Actors: s})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode snapshot for broadcast")
		return
	}

	cm.mu.Lock()
	r.snapshot = s
	r.frame = frame
	targets := make([]*Connection, 0, len(r.conns))
	for c := range r.conns {
		targets = append(targets, c)
	}
	cm.mu.Unlock()

	for _, c := range targets {
		if !c.enqueue(frame) {
			cm.metrics.SlowClosed.Add(1)
			log.Warn().
				Str("connection_id", c.ID).
				Str("actor_id", c.ActorID).
				Msg("connection send buffer full, closing connection")
			// shutdown may unsubscribe, which waits for this callback
			go c.shutdown("slow consumer")
		}
	}
	cm.metrics.SnapshotsBroadcast.Add(1)

	log.Debug().
		Str("server_id", r.serverID).
		Int("actors", len(s)).
		Int("connections", len(targets)).
		Msg("snapshot broadcasted")
}

// Snapshot returns the current state of serverID. A watched server answers
// from its room; otherwise a short-lived subscription is opened.
func (cm *ConnectionManager) Snapshot(ctx context.Context, serverID string) (models.Snapshot, error) {
	if err := sharedstate.ValidateID("server", serverID); err != nil {
		return nil, err
	}
	cm.mu.Lock()
	if r, ok := cm.rooms[serverID]; ok && r.frame != nil {
		s := r.snapshot.Clone()
		cm.mu.Unlock()
		return s, nil
	}
	cm.mu.Unlock()

	got := make(chan models.Snapshot, 1)
	sub, err := cm.channel.Subscribe(ctx, serverID, func(s models.Snapshot) {
		select {
		case got <- s:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	select {
	case s := <-got:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cm *ConnectionManager) acquireActor(k actorKey) {
	cm.mu.Lock()
	cm.holders[k]++
	cm.mu.Unlock()
}

// releaseActor drops one holder of k and reports whether it was the last
func (cm *ConnectionManager) releaseActor(k actorKey) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	n := cm.holders[k] - 1
	if n > 0 {
		cm.holders[k] = n
		return false
	}
	delete(cm.holders, k)
	return true
}

func (cm *ConnectionManager) actorHeld(k actorKey) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.holders[k] > 0
}

// leave removes the actor's entry from the shared state
func (cm *ConnectionManager) leave(k actorKey, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), cm.config.BackendTimeout)
	defer cancel()
	if err := cm.channel.Leave(ctx, k.serverID, k.actorID); err != nil {
		cm.metrics.BackendErrors.Add(1)
		log.Error().Err(err).
			Str("actor_id", k.actorID).
			Str("server_id", k.serverID).
			Str("reason", reason).
			Msg("failed to remove actor")
	}
}

type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveServers     int            `json:"active_servers"`
	ServerConnections map[string]int `json:"server_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	stats := ConnectionStats{ServerConnections: map[string]int{}}
	for serverID, r := range cm.rooms {
		stats.TotalConnections += len(r.conns)
		stats.ServerConnections[serverID] = len(r.conns)
	}
	stats.ActiveServers = len(cm.rooms)
	return stats
}

// CloseAll shuts every connection down, leaving joined actors
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	var all []*Connection
	for _, r := range cm.rooms {
		for c := range r.conns {
			all = append(all, c)
		}
	}
	cm.mu.Unlock()

	for _, c := range all {
		c.shutdown("gateway stopping")
	}
}

// enqueue reports false when the send buffer is full
func (c *Connection) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Connection) sendError(msg string) {
	frame, err := events.Encode(events.TypeError, events.ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// shutdown closes the socket, detaches the connection and removes its actor
// from the server if it had joined
func (c *Connection) shutdown(reason string) {
	c.once.Do(func() {
		close(c.done)
		c.Conn.Close()
		c.manager.unregister(c)

		c.mu.Lock()
		joined := c.joined
		c.joined = false
		c.closed = true
		c.mu.Unlock()
		c.cancel()

		// Another socket of the same user may still hold the entry
		if joined && c.manager.releaseActor(c.key()) {
			c.manager.leave(c.key(), "disconnect")
		}
		c.manager.metrics.ConnectionsClosed.Add(1)

		log.Info().
			Str("connection_id", c.ID).
			Str("actor_id", c.ActorID).
			Str("server_id", c.ServerID).
			Str("reason", reason).
			Msg("connection closed")
	})
}

func (c *Connection) key() actorKey {
	return actorKey{serverID: c.ServerID, actorID: c.ActorID}
}

// markJoined records that c holds its actor's entry. A connection that was
// shut down while its Join was in flight removes the entry it just wrote,
// unless another connection holds it.
func (c *Connection) markJoined() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if !c.manager.actorHeld(c.key()) {
			c.manager.leave(c.key(), "closed during join")
		}
		return
	}
	if !c.joined {
		c.joined = true
		c.manager.acquireActor(c.key())
	}
	c.mu.Unlock()
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				go c.shutdown("write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				go c.shutdown("ping failed")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	reason := "client closed"
	defer func() { c.shutdown(reason) }()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = "unexpected close"
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.manager.metrics.MessagesReceived.Add(1)
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

// handleClientMessage applies one client frame to the backend. Failures are
// reported back on the socket and the connection stays open.
func (c *Connection) handleClientMessage(message []byte) {
	env, err := events.Decode(message)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.manager.config.BackendTimeout)
	defer cancel()

	switch env.T {
	case events.TypeJoin:
		p, err := events.DecodePayload[events.JoinPayload](env)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if err := c.manager.channel.Join(ctx, c.ServerID, c.ActorID, p.State); err != nil {
			c.backendFailed("join", err)
			return
		}
		c.markJoined()

	case events.TypePublish:
		p, err := events.DecodePayload[events.PublishPayload](env)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.mu.Lock()
		joined := c.joined
		c.mu.Unlock()
		if !joined {
			c.sendError(ErrNotJoined.Error())
			return
		}
		if err := c.manager.channel.Publish(ctx, c.ServerID, c.ActorID, p.State); err != nil {
			c.backendFailed("publish", err)
		}

	case events.TypeLeave:
		c.mu.Lock()
		joined := c.joined
		c.joined = false
		c.mu.Unlock()
		if !joined || !c.manager.releaseActor(c.key()) {
			return
		}
		if err := c.manager.channel.Leave(ctx, c.ServerID, c.ActorID); err != nil {
			c.backendFailed("leave", err)
		}

	default:
		c.sendError(fmt.Sprintf("unknown message type %q", env.T))
	}
}

func (c *Connection) backendFailed(op string, err error) {
	c.manager.metrics.BackendErrors.Add(1)
	log.Error().Err(err).
		Str("op", op).
		Str("actor_id", c.ActorID).
		Str("server_id", c.ServerID).
		Msg("backend write failed")
	c.sendError(op + " failed")
}
