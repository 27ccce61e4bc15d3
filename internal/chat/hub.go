// Package chat relays team chat and round updates over websockets. A
// connection authenticates with an access token, joins the channels of teams
// its user plays in, and receives every frame published there.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/playperu/alias/internal/alias"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 4096
)

var errHubClosed = errors.New("chat hub closed")

type Store interface {
	Team(ctx context.Context, roomID, teamID string) (alias.Team, error)
	CreateMessage(ctx context.Context, userID, roomID, teamID, text string) (alias.Message, error)
}

type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// Publisher fans a frame out to every subscriber of a channel. Broker does
// so in-process and Relay across processes.
type Publisher interface {
	Publish(channel string, data []byte) error
}

type Options struct {
	// RatePerSecond and Burst limit sendMessage per connection.
	RatePerSecond float64
	Burst         int
}

type Hub struct {
	store  Store
	auth   Authenticator
	broker *Broker
	pub    Publisher
	logger *slog.Logger
	opts   Options

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub returns a hub delivering from broker. If pub is nil frames are
// published straight to broker.
func NewHub(store Store, auth Authenticator, broker *Broker, pub Publisher, logger *slog.Logger, opts Options) *Hub {
	if pub == nil {
		pub = broker
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Hub{
		store:  store,
		auth:   auth,
		broker: broker,
		pub:    pub,
		logger: logger,
		opts:   opts,
		done:   make(chan struct{}),
	}
}

// Close ends every open connection.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// RoundUpdated publishes the team's new phase on its chat channel.
func (h *Hub) RoundUpdated(team alias.Team) {
	frame := encode(EventRoundUpdate, RoundUpdate{
		RoomID: team.RoomID,
		TeamID: team.ID,
		Phase:  string(team.Phase),
	})
	if err := h.pub.Publish(alias.Channel(team.RoomID, team.ID), frame); err != nil {
		h.logger.Error("publishing round update", "team_id", team.ID, "error", err)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid access token"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	h.logger.Debug("chat connected", "user_id", userID)
	c := &client{
		hub:     h,
		conn:    conn,
		userID:  userID,
		out:     make(chan []byte, 16),
		joined:  make(map[string]bool),
		limiter: rate.NewLimiter(rate.Limit(h.opts.RatePerSecond), h.opts.Burst),
	}
	err = c.run(r.Context())
	h.logger.Debug("chat disconnected", "user_id", userID, "reason", err)

	if errors.Is(err, errHubClosed) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	out     chan []byte
	joined  map[string]bool
	limiter *rate.Limiter
}

func (c *client) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-c.hub.done:
			return errHubClosed
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case frame := <-c.out:
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := c.conn.Write(wctx, websocket.MessageText, frame)
				cancel()
				if err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		for {
			_, data, err := c.conn.Read(ctx)
			if err != nil {
				return err
			}
			c.handle(ctx, g, data)
		}
	})

	return g.Wait()
}

func (c *client) handle(ctx context.Context, g *errgroup.Group, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.fail(ctx, "malformed frame")
		return
	}

	switch frame.Event {
	case EventJoinTeam:
		var ref TeamRef
		if err := json.Unmarshal(frame.Data, &ref); err != nil {
			c.fail(ctx, "malformed joinTeam data")
			return
		}
		c.joinTeam(ctx, g, ref)
	case EventSendMessage:
		var msg SendMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.fail(ctx, "malformed sendMessage data")
			return
		}
		c.sendMessage(ctx, msg)
	default:
		c.fail(ctx, "unknown event "+frame.Event)
	}
}

func (c *client) joinTeam(ctx context.Context, g *errgroup.Group, ref TeamRef) {
	if err := c.checkMember(ctx, ref); err != nil {
		c.fail(ctx, err.Error())
		return
	}

	channel := alias.Channel(ref.RoomID, ref.TeamID)
	if !c.joined[channel] {
		c.joined[channel] = true
		sub := c.hub.broker.Subscribe(channel)
		g.Go(func() error {
			defer c.hub.broker.Unsubscribe(channel, sub)
			for {
				select {
				case <-ctx.Done():
					return nil
				case frame := <-sub:
					c.push(ctx, frame)
				}
			}
		})
	}
	c.push(ctx, encode(EventJoinedTeam, ref))
}

func (c *client) sendMessage(ctx context.Context, msg SendMessage) {
	if !c.limiter.Allow() {
		c.fail(ctx, "too many messages, slow down")
		return
	}
	if !c.joined[alias.Channel(msg.RoomID, msg.TeamID)] {
		c.fail(ctx, "join the team before sending messages")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if n := utf8.RuneCountInString(text); n < alias.MinMessageLength || n > alias.MaxMessageLength {
		c.fail(ctx, "message must be between 1 and 500 characters")
		return
	}
	if err := c.checkMember(ctx, msg.TeamRef); err != nil {
		c.fail(ctx, err.Error())
		return
	}

	stored, err := c.hub.store.CreateMessage(ctx, c.userID, msg.RoomID, msg.TeamID, text)
	if err != nil {
		c.hub.logger.Error("persisting chat message", "user_id", c.userID, "team_id", msg.TeamID, "error", err)
		c.fail(ctx, "message could not be saved")
		return
	}

	channel := alias.Channel(msg.RoomID, msg.TeamID)
	if err := c.hub.pub.Publish(channel, encode(EventReceiveMessage, stored)); err != nil {
		c.hub.logger.Error("publishing chat message", "message_id", stored.ID, "error", err)
	}
}

func (c *client) checkMember(ctx context.Context, ref TeamRef) error {
	team, err := c.hub.store.Team(ctx, ref.RoomID, ref.TeamID)
	if errors.Is(err, alias.ErrNotFound) {
		return errors.New("team not found")
	}
	if err != nil {
		c.hub.logger.Error("loading team", "team_id", ref.TeamID, "error", err)
		return errors.New("internal error")
	}
	if !team.HasPlayer(c.userID) {
		return errors.New("not a member of this team")
	}
	return nil
}

func (c *client) fail(ctx context.Context, message string) {
	c.push(ctx, encode(EventError, ErrorData{Message: message}))
}

func (c *client) push(ctx context.Context, frame []byte) {
	select {
	case c.out <- frame:
	case <-ctx.Done():
	}
}
