// Package session runs one game engine behind a serial action loop. Every mutation,
// including the delayed commit of announced victims, is processed on the loop goroutine.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/sessionerrors"
	"chosen-one-server/wsutil"
)

// ActionType enumerates the kinds of actions a session can process.
type ActionType int

const (
	ActionStartGame ActionType = iota
	ActionRequestRule
	ActionResolveRule
	ActionOpenBox
	ActionSubmitOutcome
	ActionResetSafe
	ActionAdvanceToFinal
	ActionPickCard
	ActionAttachObserver // Feed receives every broadcast until it is detached or the session ends
	ActionDetachObserver
	ActionSnapshot
	ActionClose
	ActionCommitElimination // internal: fired after the victim reveal delay
)

// Action represents a host action sent into the session's action channel.
type Action struct {
	Type         ActionType
	TotalPlayers int  // StartGame; 0 selects Config.DefaultTotalPlayers
	PlayerID     int  // OpenBox
	CardID       int  // PickCard
	Passed       bool // SubmitOutcome
	Feed         chan []byte
	Reply        chan game.Snapshot // Snapshot; must be buffered

	// round and generation identify a delayed commit.
	round      int
	generation int
}

// Session manages a single game for one host console.
type Session struct {
	ID        string
	Engine    *game.Engine
	Config    *config.Config
	CreatedAt time.Time

	// Send is the host console channel; may be nil.
	Send chan []byte

	Actions chan Action
	Done    chan struct{}

	// OnWinner is called on the loop goroutine when a winner is declared. Optional.
	OnWinner func(sessionID string, playerID, cardID int)

	observers map[chan []byte]struct{}

	// generation increments on every StartGame so commits scheduled for a previous game are dropped.
	generation int
	pending    *game.Announcement

	log *slog.Logger
}

// New creates a session around eng. The loop is started with Run.
func New(id string, cfg *config.Config, eng *game.Engine, send chan []byte) *Session {
	return &Session{
		ID:        id,
		Engine:    eng,
		Config:    cfg,
		CreatedAt: time.Now(),
		Send:      send,
		Actions:   make(chan Action, 16),
		Done:      make(chan struct{}),
		observers: make(map[chan []byte]struct{}),
		log:       slog.With("tag", "session", "session", id),
	}
}

// Run is the main session loop. It processes actions sequentially until ctx is cancelled,
// ActionClose is received or the action channel is closed. Observer feeds are closed on exit.
// It should be run as a goroutine.
func (s *Session) Run(ctx context.Context) {
	defer close(s.Done)
	defer s.closeObservers()

	s.broadcastState()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("context cancelled, stopping")
			return
		case action, ok := <-s.Actions:
			if !ok || action.Type == ActionClose {
				s.log.Debug("session closed")
				return
			}
			s.handle(action)
		}
	}
}

// Submit queues a into the loop. It fails with sessionerrors.ErrSessionClosed once the loop has exited.
func (s *Session) Submit(ctx context.Context, a Action) error {
	select {
	case <-s.Done:
		return sessionerrors.ErrSessionClosed
	default:
	}
	select {
	case s.Actions <- a:
		return nil
	case <-s.Done:
		return sessionerrors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot asks the loop for the current game state.
func (s *Session) Snapshot(ctx context.Context) (game.Snapshot, error) {
	reply := make(chan game.Snapshot, 1)
	if err := s.Submit(ctx, Action{Type: ActionSnapshot, Reply: reply}); err != nil {
		return game.Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.Done:
		return game.Snapshot{}, sessionerrors.ErrSessionClosed
	case <-ctx.Done():
		return game.Snapshot{}, ctx.Err()
	}
}

func (s *Session) handle(a Action) {
	switch a.Type {
	case ActionStartGame:
		s.handleStartGame(a.TotalPlayers)
	case ActionRequestRule:
		s.handleRequestRule()
	case ActionResolveRule:
		s.handleResolveRule()
	case ActionCommitElimination:
		s.handleCommitElimination(a.generation, a.round)
	case ActionOpenBox:
		s.handleOpenBox(a.PlayerID)
	case ActionSubmitOutcome:
		s.handleSubmitOutcome(a.Passed)
	case ActionResetSafe:
		s.handleResetSafe()
	case ActionAdvanceToFinal:
		s.handleAdvanceToFinal()
	case ActionPickCard:
		s.handlePickCard(a.CardID)
	case ActionAttachObserver:
		if a.Feed != nil {
			s.observers[a.Feed] = struct{}{}
			s.sendState(a.Feed)
		}
	case ActionDetachObserver:
		if _, ok := s.observers[a.Feed]; ok {
			delete(s.observers, a.Feed)
			close(a.Feed)
		}
	case ActionSnapshot:
		if a.Reply != nil {
			a.Reply <- s.Engine.Snapshot()
		}
	default:
		s.log.Warn("unknown action", "type", a.Type)
	}
}

func (s *Session) handleStartGame(total int) {
	if total == 0 {
		total = s.Config.DefaultTotalPlayers
	}
	if s.Config.MaxTotalPlayers > 0 && total > s.Config.MaxTotalPlayers {
		s.sendError(fmt.Sprintf("totalPlayers must be between 1 and %d", s.Config.MaxTotalPlayers))
		return
	}
	if err := s.Engine.StartGame(total); err != nil {
		s.reject("start game", err)
		return
	}
	s.generation++
	s.pending = nil
	s.log.Info("game started", "players", total, "phase", s.Engine.Phase())
	s.broadcastState()
}

func (s *Session) handleRequestRule() {
	rule, err := s.Engine.RequestRule()
	if err != nil {
		s.reject("request rule", err)
		return
	}
	s.log.Debug("rule drawn", "rule", rule.Description)
	s.broadcastState()
}

func (s *Session) handleResolveRule() {
	a, err := s.Engine.ResolveRule()
	if err != nil {
		s.reject("resolve rule", err)
		return
	}
	rv := game.NewRuleView(a.Rule)
	if len(a.Victims) == 0 {
		s.log.Info("no victims", "round", a.Round, "rule", a.Rule.Description)
		s.broadcast(NoVictimsMsg{Type: "no_victims", Round: a.Round, Rule: rv})
		s.broadcastState()
		return
	}

	delay := s.Config.VictimRevealDelayMS
	s.pending = &a
	s.log.Info("victims announced", "round", a.Round, "rule", a.Rule.Description, "victims", a.Victims)
	s.broadcast(VictimsAnnouncedMsg{
		Type:          "victims_announced",
		Round:         a.Round,
		Rule:          rv,
		Victims:       a.Victims,
		RevealDelayMS: delay,
	})
	s.broadcastState()

	// Schedule the commit via the actions channel so it is processed serially.
	go func(generation, round int, delay time.Duration) {
		time.Sleep(delay)
		select {
		case s.Actions <- Action{Type: ActionCommitElimination, generation: generation, round: round}:
		case <-s.Done:
		}
	}(s.generation, a.Round, time.Duration(delay)*time.Millisecond)
}

func (s *Session) handleCommitElimination(generation, round int) {
	// The game may have been restarted while the reveal delay was running.
	if generation != s.generation || s.pending == nil || s.pending.Round != round {
		s.log.Debug("dropping stale elimination", "round", round)
		return
	}
	if err := s.Engine.CommitElimination(round); err != nil {
		s.log.Error("commit elimination", "round", round, "error", err)
		return
	}
	victims := s.pending.Victims
	s.pending = nil
	s.log.Info("elimination committed", "round", round, "victims", victims, "active", s.Engine.ActiveCount(), "phase", s.Engine.Phase())
	s.broadcast(EliminationCommittedMsg{
		Type:              "elimination_committed",
		Round:             round,
		Victims:           victims,
		ActivePlayerCount: s.Engine.ActiveCount(),
		Phase:             s.Engine.Phase().String(),
	})
	s.broadcastState()
}

func (s *Session) handleOpenBox(playerID int) {
	c, err := s.Engine.OpenBox(playerID)
	if err != nil {
		s.reject("open box", err)
		return
	}
	s.broadcast(ChallengeOpenedMsg{Type: "challenge_opened", PlayerID: c.PlayerID, Text: c.Text})
	s.broadcastState()
}

func (s *Session) handleSubmitOutcome(passed bool) {
	o, err := s.Engine.SubmitChallengeOutcome(passed)
	if err != nil {
		s.reject("submit outcome", err)
		return
	}
	s.log.Info("challenge resolved", "player", o.PlayerID, "passed", o.Passed)
	s.broadcast(ChallengeResolvedMsg{Type: "challenge_resolved", PlayerID: o.PlayerID, Passed: o.Passed})
	s.broadcastState()
}

func (s *Session) handleResetSafe() {
	n, err := s.Engine.ResetSafePlayers()
	if err != nil {
		s.reject("reset safe players", err)
		return
	}
	s.log.Info("safe players reset", "count", n)
	s.broadcastState()
}

func (s *Session) handleAdvanceToFinal() {
	cards, err := s.Engine.AdvanceToFinal()
	if err != nil {
		s.reject("advance to final", err)
		return
	}
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.PlayerID
	}
	s.log.Info("final draw started", "cards", len(cards))
	s.broadcast(FinalDrawStartedMsg{Type: "final_draw_started", CardCount: len(cards), PlayerIDs: ids})
	s.broadcastState()
}

func (s *Session) handlePickCard(cardID int) {
	r, err := s.Engine.PickCard(cardID)
	if err != nil {
		s.reject("pick card", err)
		return
	}
	s.broadcast(CardRevealedMsg{Type: "card_revealed", CardID: r.CardID, PlayerID: r.PlayerID, IsWinner: r.IsWinner})
	if r.IsWinner {
		s.log.Info("winner declared", "player", r.PlayerID, "card", r.CardID)
		s.broadcast(WinnerDeclaredMsg{Type: "winner_declared", PlayerID: r.PlayerID, CardID: r.CardID})
		if s.OnWinner != nil {
			s.OnWinner(s.ID, r.PlayerID, r.CardID)
		}
	}
	s.broadcastState()
}

// reject reports a refused action to the host. Rejections leave the engine untouched.
func (s *Session) reject(op string, err error) {
	if errors.Is(err, game.ErrInvalidTransition) || errors.Is(err, game.ErrInvalidConfiguration) {
		s.log.Debug("action rejected", "op", op, "error", err)
	} else {
		s.log.Warn("action failed", "op", op, "error", err)
	}
	s.sendError(err.Error())
}

func (s *Session) sendError(message string) {
	if s.Send == nil {
		return
	}
	wsutil.SendJSON(s.Send, ErrorMsg{Type: "error", Message: message})
}

// broadcast sends msg to the host and every observer.
func (s *Session) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshaling message", "err", err)
		return
	}
	if s.Send != nil {
		wsutil.SafeSend(s.Send, data)
	}
	for feed := range s.observers {
		wsutil.SafeSend(feed, data)
	}
}

func (s *Session) broadcastState() {
	s.broadcast(s.Engine.Snapshot())
}

func (s *Session) sendState(feed chan []byte) {
	wsutil.SendJSON(feed, s.Engine.Snapshot())
}

func (s *Session) closeObservers() {
	for feed := range s.observers {
		close(feed)
		delete(s.observers, feed)
	}
}
