package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chosen-one-server/session"
	"chosen-one-server/sessionerrors"
	"chosen-one-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Time allowed to queue an action into the session loop.
	submitWait = 5 * time.Second
)

// Client is a middleman between the websocket connection of one host console and its session.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	HostName string
	Session  *session.Session
}

// ReadPump pumps messages from the websocket connection to the session.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}
	if c.Session == nil {
		c.sendError("No session is open.")
		return
	}

	switch envelope.Type {
	case "start_game":
		var msg StartGameMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid start_game message.")
			return
		}
		c.submit(session.Action{Type: session.ActionStartGame, TotalPlayers: msg.TotalPlayers})
	case "request_rule":
		c.submit(session.Action{Type: session.ActionRequestRule})
	case "resolve_rule":
		c.submit(session.Action{Type: session.ActionResolveRule})
	case "open_box":
		var msg OpenBoxMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid open_box message.")
			return
		}
		c.submit(session.Action{Type: session.ActionOpenBox, PlayerID: msg.PlayerID})
	case "submit_outcome":
		var msg SubmitOutcomeMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid submit_outcome message.")
			return
		}
		c.submit(session.Action{Type: session.ActionSubmitOutcome, Passed: msg.Passed})
	case "reset_safe":
		c.submit(session.Action{Type: session.ActionResetSafe})
	case "advance_final":
		c.submit(session.Action{Type: session.ActionAdvanceToFinal})
	case "pick_card":
		var msg PickCardMsg
		if err := json.Unmarshal(envelope.Raw, &msg); err != nil {
			c.sendError("Invalid pick_card message.")
			return
		}
		c.submit(session.Action{Type: session.ActionPickCard, CardID: msg.CardID})
	case "get_state":
		c.handleGetState()
	case "autoplay":
		c.handleAutoplay()
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) submit(a session.Action) {
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	if err := c.Session.Submit(ctx, a); err != nil {
		c.sendSessionError(err)
	}
}

func (c *Client) handleGetState() {
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	snap, err := c.Session.Snapshot(ctx)
	if err != nil {
		c.sendSessionError(err)
		return
	}
	wsutil.SendJSON(c.Send, snap)
}

func (c *Client) handleAutoplay() {
	params, err := c.Hub.Lobby.Autoplay(c.Session.ID)
	if err != nil {
		c.sendSessionError(err)
		return
	}
	wsutil.SendJSON(c.Send, AutoplayStartedMsg{Type: "autoplay_started", Name: params.Name, Strategy: params.Strategy})
}

func (c *Client) sendSessionError(err error) {
	switch {
	case errors.Is(err, sessionerrors.ErrSessionClosed):
		c.sendError("The session is closed.")
	case errors.Is(err, sessionerrors.ErrSessionNotFound):
		c.sendError("The session no longer exists.")
	default:
		slog.Warn("session request failed", "tag", "ws", "session", c.Session.ID, "error", err)
		c.sendError(err.Error())
	}
}

func (c *Client) sendError(message string) {
	wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Message: message})
}
