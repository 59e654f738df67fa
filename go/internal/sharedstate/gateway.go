package sharedstate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/presence/go/internal/events"
	"github.com/mcdev12/presence/go/internal/models"
)

// ErrActorMismatch is returned when a write names an actor other than the one
// the gateway bound the connection to
var ErrActorMismatch = errors.New("actor id does not match gateway session")

type GatewayConfig struct {
	URL            string // ws://host:port
	Token          string
	WriteTimeout   time.Duration
	DialTimeout    time.Duration
	MaxDialElapsed time.Duration
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		URL:            "ws://localhost:8081",
		WriteTimeout:   5 * time.Second,
		DialTimeout:    5 * time.Second,
		MaxDialElapsed: 30 * time.Second,
	}
}

// GatewayChannel reaches the shared state through the gateway websocket
// instead of talking to the backend directly. It keeps one socket per
// server, dialled on first use and redialled with exponential backoff
// when it drops.
type GatewayChannel struct {
	cfg    GatewayConfig
	dialer *websocket.Dialer

	mu     sync.Mutex
	conns  map[string]*gatewayConn
	closed bool
}

func NewGatewayChannel(cfg GatewayConfig) *GatewayChannel {
	return &GatewayChannel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
		},
		conns: map[string]*gatewayConn{},
	}
}

func (g *GatewayChannel) Join(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	c, err := g.writable(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if err := c.send(events.TypeJoin, events.JoinPayload{State: st}); err != nil {
		return err
	}
	c.mu.Lock()
	c.joined = &st
	c.mu.Unlock()
	return nil
}

func (g *GatewayChannel) Publish(ctx context.Context, serverID, actorID string, st models.ActorState) error {
	c, err := g.writable(ctx, serverID, actorID)
	if err != nil {
		return err
	}
	if err := c.send(events.TypePublish, events.PublishPayload{State: st}); err != nil {
		return err
	}
	c.mu.Lock()
	if c.joined != nil {
		c.joined = &st
	}
	c.mu.Unlock()
	return nil
}

func (g *GatewayChannel) Leave(ctx context.Context, serverID, actorID string) error {
	if err := validate(serverID, actorID); err != nil {
		return err
	}
	g.mu.Lock()
	c, ok := g.conns[serverID]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.checkActor(actorID); err != nil {
		return err
	}
	c.mu.Lock()
	c.joined = nil
	c.mu.Unlock()
	err := c.send(events.TypeLeave, nil)
	g.releaseIfIdle(serverID, c)
	return err
}

func (g *GatewayChannel) Subscribe(ctx context.Context, serverID string, fn func(models.Snapshot)) (Subscription, error) {
	if err := ValidateID("server", serverID); err != nil {
		return nil, err
	}
	c, err := g.conn(ctx, serverID)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	d := newDelivery(fn)
	c.mu.Lock()
	c.subs[id] = d
	if c.last != nil {
		d.push(c.last.Clone())
	}
	c.mu.Unlock()
	return &gatewaySubscription{channel: g, serverID: serverID, conn: c, id: id}, nil
}

// Close drops every socket
func (g *GatewayChannel) Close() error {
	g.mu.Lock()
	conns := g.conns
	g.conns = map[string]*gatewayConn{}
	g.closed = true
	g.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	return nil
}

func (g *GatewayChannel) writable(ctx context.Context, serverID, actorID string) (*gatewayConn, error) {
	if err := validate(serverID, actorID); err != nil {
		return nil, err
	}
	c, err := g.conn(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if err := c.checkActor(actorID); err != nil {
		return nil, err
	}
	return c, nil
}

func (g *GatewayChannel) conn(ctx context.Context, serverID string) (*gatewayConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrClosed
	}
	if c, ok := g.conns[serverID]; ok {
		return c, nil
	}
	c := &gatewayConn{
		channel:  g,
		serverID: serverID,
		subs:     map[uuid.UUID]*delivery{},
		done:     make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	g.conns[serverID] = c
	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

func (g *GatewayChannel) releaseIfIdle(serverID string, c *gatewayConn) {
	c.mu.Lock()
	idle := len(c.subs) == 0 && c.joined == nil
	c.mu.Unlock()
	if !idle {
		return
	}
	g.mu.Lock()
	if g.conns[serverID] == c {
		delete(g.conns, serverID)
	}
	g.mu.Unlock()
	c.close()
}

func (g *GatewayChannel) endpoint(serverID string) (string, error) {
	u, err := url.Parse(g.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	u.Path = "/ws/presence"
	q := u.Query()
	q.Set("server", serverID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type gatewayConn struct {
	channel  *GatewayChannel
	serverID string

	writeMu sync.Mutex
	ws      *websocket.Conn

	mu      sync.Mutex
	actorID string
	joined  *models.ActorState
	last    models.Snapshot
	subs    map[uuid.UUID]*delivery

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// connect dials the gateway and waits for the welcome frame
func (c *gatewayConn) connect(ctx context.Context) error {
	endpoint, err := c.channel.endpoint(c.serverID)
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.channel.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.channel.cfg.Token)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.channel.cfg.MaxDialElapsed

	var ws *websocket.Conn
	op := func() error {
		conn, resp, err := c.channel.dialer.DialContext(ctx, endpoint, header)
		if err != nil {
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(fmt.Errorf("gateway rejected connection: %s", resp.Status))
			}
			log.Warn().Err(err).Str("server_id", c.serverID).Msg("gateway dial failed, retrying")
			return err
		}
		ws = conn
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return fmt.Errorf("read welcome: %w", err)
	}
	env, err := events.Decode(data)
	if err != nil {
		ws.Close()
		return err
	}
	if env.T == events.TypeError {
		p, _ := events.DecodePayload[events.ErrorPayload](env)
		ws.Close()
		return fmt.Errorf("gateway error: %s", p.Message)
	}
	welcome, err := events.DecodePayload[events.WelcomePayload](env)
	if err != nil {
		ws.Close()
		return fmt.Errorf("expected welcome: %w", err)
	}

	c.writeMu.Lock()
	c.ws = ws
	c.writeMu.Unlock()
	c.mu.Lock()
	c.actorID = welcome.ActorID
	c.mu.Unlock()

	log.Debug().
		Str("server_id", c.serverID).
		Str("actor_id", welcome.ActorID).
		Msg("connected to gateway")
	return nil
}

func (c *gatewayConn) checkActor(actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.actorID != "" && c.actorID != actorID {
		return fmt.Errorf("%w: %s", ErrActorMismatch, actorID)
	}
	return nil
}

func (c *gatewayConn) send(t events.MessageType, payload any) error {
	data, err := events.Encode(t, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.ws == nil {
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.channel.cfg.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", t, err)
	}
	return nil
}

func (c *gatewayConn) readLoop() {
	defer c.wg.Done()
	for {
		c.writeMu.Lock()
		ws := c.ws
		c.writeMu.Unlock()
		if ws == nil {
			return
		}

		_, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			log.Warn().Err(err).Str("server_id", c.serverID).Msg("gateway connection lost")
			if !c.reconnect() {
				return
			}
			continue
		}
		c.handle(data)
	}
}

func (c *gatewayConn) handle(data []byte) {
	env, err := events.Decode(data)
	if err != nil {
		log.Warn().Err(err).Msg("dropping malformed gateway frame")
		return
	}
	switch env.T {
	case events.TypeSnapshot:
		p, err := events.DecodePayload[events.SnapshotPayload](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed snapshot")
			return
		}
		c.mu.Lock()
		c.last = p.Actors
		for _, d := range c.subs {
			d.push(p.Actors.Clone())
		}
		c.mu.Unlock()
	case events.TypeError:
		p, _ := events.DecodePayload[events.ErrorPayload](env)
		log.Error().Str("server_id", c.serverID).Str("message", p.Message).Msg("gateway reported an error")
	}
}

// reconnect redials and replays the join. It gives up when the connection
// has been closed or the dial backoff is exhausted.
func (c *gatewayConn) reconnect() bool {
	c.writeMu.Lock()
	if c.ws != nil {
		c.ws.Close()
	}
	c.writeMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.connect(ctx); err != nil {
		log.Error().Err(err).Str("server_id", c.serverID).Msg("gave up reconnecting to gateway")
		c.channel.mu.Lock()
		if c.channel.conns[c.serverID] == c {
			delete(c.channel.conns, c.serverID)
		}
		c.channel.mu.Unlock()
		return false
	}

	c.mu.Lock()
	joined := c.joined
	c.mu.Unlock()
	if joined != nil {
		if err := c.send(events.TypeJoin, events.JoinPayload{State: *joined}); err != nil {
			log.Error().Err(err).Str("server_id", c.serverID).Msg("failed to rejoin after reconnect")
		}
	}
	return true
}

func (c *gatewayConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.ws.Close()
		}
		c.writeMu.Unlock()
		c.wg.Wait()

		c.mu.Lock()
		subs := c.subs
		c.subs = map[uuid.UUID]*delivery{}
		c.mu.Unlock()
		for _, d := range subs {
			d.stop()
		}
	})
}

type gatewaySubscription struct {
	channel  *GatewayChannel
	serverID string
	conn     *gatewayConn
	id       uuid.UUID
	once     sync.Once
}

func (s *gatewaySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.conn.mu.Lock()
		d := s.conn.subs[s.id]
		delete(s.conn.subs, s.id)
		s.conn.mu.Unlock()
		if d != nil {
			d.stop()
		}
		s.channel.releaseIfIdle(s.serverID, s.conn)
	})
	return nil
}
