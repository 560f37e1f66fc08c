package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"stickman_shake/internal/logger"
	"stickman_shake/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
)

var errClientGone = errors.New("client disconnected")

// Client bridges one websocket connection and one game session.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	hub     *Hub
	session *service.Session

	lastSeen atomic.Int64
}

func newClient(hub *Hub, conn *websocket.Conn, session *service.Session) *Client {
	c := &Client{
		ID:      uuid.NewString(),
		Conn:    conn,
		Send:    make(chan []byte, 64),
		hub:     hub,
		session: session,
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastSeen.Store(c.hub.clock.Now().UnixNano())
}

func (c *Client) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

// Run blocks until the connection or ctx ends. A pre-authenticated identity
// (token in the query string) signs in right away.
func (c *Client) Run(ctx context.Context, id *service.Identity) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.session.Run(ctx) })
	g.Go(func() error { return c.writePump(ctx) })
	g.Go(func() error { return c.readPump(ctx) })

	if id != nil {
		if err := c.session.Send(ctx, service.SignIn{Identity: *id}); err != nil {
			logger.Warn("ws: initial sign in not queued", "client", c.ID, "error", err)
		}
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errClientGone) {
		return nil
	}
	return err
}

// read
func (c *Client) readPump(ctx context.Context) error {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws: read error", "client", c.ID, "error", err)
			}
			return errClientGone
		}
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := c.handle(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Client) handle(ctx context.Context, msg []byte) error {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		MessagesIn.WithLabelValues("invalid").Inc()
		return c.replyError(ctx, "", CodeBadMessage, "invalid json")
	}
	label := env.Type
	if label != MsgSignIn && label != MsgSignOut && label != MsgMove && label != MsgPing && !actionTypes[label] {
		label = "unknown"
	}
	MessagesIn.WithLabelValues(label).Inc()

	switch {
	case env.Type == MsgPing:
		return c.reply(ctx, MsgPong, env.RequestID, nil)

	case env.Type == MsgSignIn:
		var p SignInPayload
		if err := decode(env.Data, &p); err != nil {
			return c.replyError(ctx, env.RequestID, CodeBadMessage, "invalid sign_in payload")
		}
		id, err := service.ParseJWT(p.Token)
		if err != nil {
			return c.replyError(ctx, env.RequestID, CodeUnauthorized, "invalid token")
		}
		return c.session.Send(ctx, service.SignIn{Identity: id, Username: p.Username})

	case env.Type == MsgSignOut:
		return c.session.Send(ctx, service.SignOut{})

	case env.Type == MsgMove:
		var p MovePayload
		if err := decode(env.Data, &p); err != nil {
			return c.replyError(ctx, env.RequestID, CodeBadMessage, "invalid move payload")
		}
		return c.session.Send(ctx, service.Move{DX: p.DX, DY: p.DY})

	case actionTypes[env.Type]:
		var p ActionPayload
		if err := decode(env.Data, &p); err != nil {
			return c.replyError(ctx, env.RequestID, CodeBadMessage, "invalid action payload")
		}
		return c.session.Send(ctx, service.Action{
			RequestID: env.RequestID,
			Kind:      env.Type,
			ID:        p.ID,
			Category:  p.Category,
		})
	}

	return c.replyError(ctx, env.RequestID, CodeBadMessage, "unknown message type: "+env.Type)
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (c *Client) reply(ctx context.Context, typ, requestID string, data any) error {
	b, err := encode(typ, requestID, data)
	if err != nil {
		return err
	}
	select {
	case c.Send <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) replyError(ctx context.Context, requestID, code, message string) error {
	return c.reply(ctx, MsgError, requestID, ErrorPayload{Code: code, Message: message})
}

// write
func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	if err := c.write(websocket.TextMessage, mustEncode(MsgReady, "", nil)); err != nil {
		return errClientGone
	}

	events := c.session.Events()
	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			b, err := encodeEvent(ev)
			if err != nil {
				logger.Error("ws: encode event", "client", c.ID, "type", ev.Type, "error", err)
				continue
			}
			if err := c.write(websocket.TextMessage, b); err != nil {
				return errClientGone
			}

		case msg := <-c.Send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return errClientGone
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return errClientGone
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func encode(typ, requestID string, data any) ([]byte, error) {
	env := Envelope{Type: typ, RequestID: requestID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func mustEncode(typ, requestID string, data any) []byte {
	b, err := encode(typ, requestID, data)
	if err != nil {
		panic(err)
	}
	return b
}

// encodeEvent maps a session event onto the wire format.
func encodeEvent(ev service.Event) ([]byte, error) {
	switch ev.Type {
	case service.EventState:
		return encode(MsgState, "", StatePayload{State: string(ev.State)})
	case service.EventProfile:
		return encode(MsgProfile, "", ev.View)
	case service.EventLeaderboard:
		return encode(MsgLeaderboard, "", ev.Board)
	case service.EventEarned:
		return encode(MsgEarned, "", EarnedPayload{Amount: ev.Earned, Source: ev.Source})
	case service.EventActionResult:
		res := ActionResultPayload{Action: ev.Action, OK: ev.Err == nil, Digest: ev.Digest}
		if ev.Err != nil {
			res.Error = errorPayload(ev.Err)
		}
		return encode(MsgActionResult, ev.RequestID, res)
	case service.EventError:
		return encode(MsgError, ev.RequestID, errorPayload(ev.Err))
	}
	return nil, errors.New("unknown event type " + string(ev.Type))
}
