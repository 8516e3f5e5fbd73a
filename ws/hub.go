package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chosen-one-server/autohost"
	"chosen-one-server/config"
	"chosen-one-server/session"
	"chosen-one-server/sessionerrors"
	"chosen-one-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LobbyInterface defines what the Hub needs from the session lobby.
type LobbyInterface interface {
	Open(c *Client) (*session.Session, error)
	Release(c *Client)
	Autoplay(sessionID string) (config.AutoHostParams, error)
}

// Authenticator validates the token a host presents on the upgrade request.
type Authenticator interface {
	Validate(token string) (hostName string, err error)
}

// Hub maintains the set of connected host consoles.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Lobby      LobbyInterface
	Auth       Authenticator
	Config     *config.Config

	// tokenFromRequest extracts the host token from the upgrade request.
	tokenFromRequest func(r *http.Request) string
}

// NewHub creates a new Hub. auth may be nil to accept every host.
func NewHub(cfg *config.Config, lobby LobbyInterface, auth Authenticator, tokenFromRequest func(r *http.Request) string) *Hub {
	return &Hub{
		Clients:          make(map[*Client]bool),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		Lobby:            lobby,
		Auth:             auth,
		Config:           cfg,
		tokenFromRequest: tokenFromRequest,
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "hub")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("host connected", "tag", "hub", "host", client.HostName, "clients", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				h.Lobby.Release(client)
				close(client.Send)
				slog.Info("host disconnected", "tag", "hub", "host", client.HostName, "clients", len(h.Clients))
			}
		}
	}
}

// ServeWS authenticates the host, upgrades the connection and opens a session for it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	hostName := "Host"
	if h.Auth != nil {
		token := ""
		if h.tokenFromRequest != nil {
			token = h.tokenFromRequest(r)
		}
		name, err := h.Auth.Validate(token)
		if err != nil {
			slog.Warn("rejected host", "tag", "hub", "remote", r.RemoteAddr, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		hostName = name
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "tag", "hub", "error", err)
		return
	}

	client := &Client{
		Hub:      h,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		HostName: hostName,
	}

	s, err := h.Lobby.Open(client)
	if err != nil {
		msg := "Could not open a session."
		if errors.Is(err, sessionerrors.ErrTooManySessions) {
			msg = "Too many sessions are open. Try again later."
		}
		slog.Warn("open session", "tag", "hub", "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, msg))
		conn.Close()
		return
	}
	client.Session = s

	h.Register <- client

	wsutil.SendJSON(client.Send, SessionOpenedMsg{
		Type:                "session_opened",
		SessionID:           s.ID,
		HostName:            hostName,
		DefaultTotalPlayers: h.Config.DefaultTotalPlayers,
		MaxTotalPlayers:     h.Config.MaxTotalPlayers,
		VictimRevealDelayMS: h.Config.VictimRevealDelayMS,
		Strategies:          autohost.Names(),
	})

	go client.WritePump()
	go client.ReadPump()
}
