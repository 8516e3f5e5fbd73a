// Package lobby creates, tracks and closes the sessions of connected hosts.
package lobby

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chosen-one-server/autohost"
	"chosen-one-server/challenge"
	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/random"
	"chosen-one-server/session"
	"chosen-one-server/sessionerrors"
	"chosen-one-server/ws"
)

// releaseWait bounds how long closing a session may block the caller.
const releaseWait = 2 * time.Second

// Summary describes an open session.
type Summary struct {
	ID        string    `json:"id"`
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"createdAt"`
	Autoplay  bool      `json:"autoplay"`
}

type entry struct {
	session  *session.Session
	host     string
	cancel   context.CancelFunc
	autoplay bool
}

// Lobby owns every open session. It is safe for concurrent use.
type Lobby struct {
	ctx    context.Context
	config *config.Config

	mu       sync.Mutex
	sessions map[string]*entry

	gamesWon atomic.Int64
}

// Ensure *Lobby satisfies the hub's dependency.
var _ ws.LobbyInterface = (*Lobby)(nil)

// New creates a lobby. Session loops stop when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config) *Lobby {
	return &Lobby{
		ctx:      ctx,
		config:   cfg,
		sessions: make(map[string]*entry),
	}
}

// Open creates a session for a connected host console.
func (l *Lobby) Open(c *ws.Client) (*session.Session, error) {
	return l.Create(c.HostName, c.Send)
}

// Create starts a new session whose broadcasts go to send (may be nil).
func (l *Lobby) Create(host string, send chan []byte) (*session.Session, error) {
	rng, err := random.NewRand(l.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	eng := game.NewEngine(rng, challenge.FromTexts(l.config.Challenges))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.config.MaxSessions > 0 && len(l.sessions) >= l.config.MaxSessions {
		return nil, sessionerrors.ErrTooManySessions
	}

	id := uuid.NewString()
	s := session.New(id, l.config, eng, send)
	s.OnWinner = l.recordWinner
	ctx, cancel := context.WithCancel(l.ctx)
	l.sessions[id] = &entry{session: s, host: host, cancel: cancel}

	go func() {
		s.Run(ctx)
		cancel()
		l.remove(id)
	}()

	slog.Info("session opened", "tag", "lobby", "session", id, "host", host, "open", len(l.sessions))
	return s, nil
}

// Release closes the session of a disconnected host console.
func (l *Lobby) Release(c *ws.Client) {
	if c.Session == nil {
		return
	}
	if err := l.Close(c.Session.ID); err != nil {
		slog.Debug("release session", "tag", "lobby", "session", c.Session.ID, "error", err)
	}
}

// Close stops the session loop, waits for it to exit and forgets the session.
func (l *Lobby) Close(id string) error {
	l.mu.Lock()
	e, ok := l.sessions[id]
	l.mu.Unlock()
	if !ok {
		return sessionerrors.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), releaseWait)
	defer cancel()
	if err := e.session.Submit(ctx, session.Action{Type: session.ActionClose}); err != nil {
		// The loop is stuck or already gone; cancelling its context stops it either way.
		e.cancel()
	}
	// Callers close the host channel next, so the loop must have stopped broadcasting.
	select {
	case <-e.session.Done:
	case <-ctx.Done():
		e.cancel()
		<-e.session.Done
	}
	l.remove(id)
	return nil
}

// Get returns the open session with the given id.
func (l *Lobby) Get(id string) (*session.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.sessions[id]
	if !ok {
		return nil, sessionerrors.ErrSessionNotFound
	}
	return e.session, nil
}

// List returns the open sessions, oldest first.
func (l *Lobby) List() []Summary {
	l.mu.Lock()
	list := make([]Summary, 0, len(l.sessions))
	for id, e := range l.sessions {
		list = append(list, Summary{ID: id, Host: e.host, CreatedAt: e.session.CreatedAt, Autoplay: e.autoplay})
	}
	l.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// GamesWon returns how many games ended with a declared winner since the lobby was created.
func (l *Lobby) GamesWon() int64 {
	return l.gamesWon.Load()
}

// Autoplay hands the session over to the automatic host until the game ends.
func (l *Lobby) Autoplay(id string) (config.AutoHostParams, error) {
	params := l.config.AutoHost

	l.mu.Lock()
	e, ok := l.sessions[id]
	if !ok {
		l.mu.Unlock()
		return params, sessionerrors.ErrSessionNotFound
	}
	if e.autoplay {
		l.mu.Unlock()
		return params, fmt.Errorf("autoplay is already running for session %s", id)
	}
	e.autoplay = true
	l.mu.Unlock()

	seed := l.config.Seed
	if seed != 0 {
		// Keep the host's choices independent from the engine's draws.
		seed++
	}
	rng, err := random.NewRand(seed)
	if err != nil {
		l.setAutoplay(id, false)
		return params, fmt.Errorf("seed autoplay: %w", err)
	}

	s := e.session
	feed := make(chan []byte, 256)
	ctx, cancel := context.WithTimeout(context.Background(), releaseWait)
	defer cancel()
	if err := s.Submit(ctx, session.Action{Type: session.ActionAttachObserver, Feed: feed}); err != nil {
		l.setAutoplay(id, false)
		return params, err
	}

	go func() {
		winner, ok := autohost.Run(feed, s, &params, rng)
		slog.Info("autoplay finished", "tag", "lobby", "session", id, "winner", winner, "declared", ok)
		l.setAutoplay(id, false)
		detachCtx, cancel := context.WithTimeout(context.Background(), releaseWait)
		defer cancel()
		// The feed is closed by the session; an already closed session has closed it too.
		_ = s.Submit(detachCtx, session.Action{Type: session.ActionDetachObserver, Feed: feed})
	}()

	slog.Info("autoplay started", "tag", "lobby", "session", id, "name", params.Name, "strategy", params.Strategy)
	return params, nil
}

func (l *Lobby) setAutoplay(id string, on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.sessions[id]; ok {
		e.autoplay = on
	}
}

func (l *Lobby) recordWinner(sessionID string, playerID, cardID int) {
	l.gamesWon.Add(1)
	slog.Info("game won", "tag", "lobby", "session", sessionID, "player", playerID, "card", cardID)
}

func (l *Lobby) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sessions[id]; ok {
		delete(l.sessions, id)
		slog.Info("session closed", "tag", "lobby", "session", id, "open", len(l.sessions))
	}
}
