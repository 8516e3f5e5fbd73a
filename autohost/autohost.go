// Package autohost plays the host's role on a session: it reads the game_state broadcasts,
// decides the next action and submits it after a human-like delay.
package autohost

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/session"
	"chosen-one-server/sessionerrors"
)

// decision is what the auto host does with one snapshot.
type decision int

const (
	decideWait decision = iota // a delayed transition is running; the next snapshot will tell
	decideAct
	decideStop // winner declared, nobody left to draw for, or too few players to leave the math phase
)

// decide returns the next action for state.
func decide(state *game.Snapshot, strat Strategy, rng *rand.Rand, passChance int) (session.Action, decision) {
	if state.Winner != nil {
		return session.Action{}, decideStop
	}
	if !state.Started {
		return session.Action{Type: session.ActionStartGame}, decideAct
	}
	if len(state.Victims) > 0 {
		return session.Action{}, decideWait
	}
	if state.PendingChallenge != nil {
		return session.Action{Type: session.ActionSubmitOutcome, Passed: rng.Intn(100) < clampPercent(passChance)}, decideAct
	}

	switch game.Phase(state.Phase) {
	case game.PhaseMath:
		if state.ActivePlayerCount < game.ChallengePhaseMin {
			// Rules cannot lift the count back into the challenge band.
			return session.Action{}, decideStop
		}
		if state.PendingRule == nil {
			return session.Action{Type: session.ActionRequestRule}, decideAct
		}
		return session.Action{Type: session.ActionResolveRule}, decideAct
	case game.PhaseChallenge:
		if state.CanAdvanceToFinal {
			return session.Action{Type: session.ActionAdvanceToFinal}, decideAct
		}
		pending := pendingBoxes(state.Players)
		if len(pending) == 0 {
			return session.Action{}, decideStop
		}
		return session.Action{Type: session.ActionOpenBox, PlayerID: strat.PickBox(rng, pending)}, decideAct
	case game.PhaseFinalDraw:
		hidden := hiddenCards(state.Cards)
		if len(hidden) == 0 {
			return session.Action{}, decideStop
		}
		return session.Action{Type: session.ActionPickCard, CardID: strat.PickCard(rng, hidden)}, decideAct
	}
	return session.Action{}, decideWait
}

// pendingBoxes returns the ids of active players whose box is still closed.
func pendingBoxes(players []game.PlayerView) []int {
	var ids []int
	for _, p := range players {
		if p.Status == game.StatusActive.String() && p.Box == game.BoxPending.String() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// hiddenCards returns the ids of unrevealed cards.
func hiddenCards(cards []game.CardView) []int {
	var ids []int
	for _, c := range cards {
		if !c.Revealed {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Run drives s from the messages on feed until a winner is declared or the game cannot
// reach one, the session closes or feed is closed. It returns the winning player id, if any.
func Run(feed <-chan []byte, s *session.Session, params *config.AutoHostParams, rng *rand.Rand) (winner int, ok bool) {
	strat, found := Lookup(params.Strategy)
	if !found {
		slog.Warn("unknown strategy, using default", "tag", "autohost", "strategy", params.Strategy, "default", DefaultStrategy)
		strat, _ = Lookup(DefaultStrategy)
	}
	log := slog.With("tag", "autohost", "name", params.Name, "session", s.ID)

	for data := range feed {
		state, isState := parseState(data)
		if !isState {
			continue
		}
		// Human-like delay before acting, then act on the newest state.
		action, d := decide(&state, strat, rng, params.PassChance)
		if d == decideAct {
			sleep(params, rng)
			var closed bool
			if state, closed = latest(feed, state); closed {
				return 0, false
			}
			action, d = decide(&state, strat, rng, params.PassChance)
		}

		switch d {
		case decideStop:
			if state.Winner != nil {
				log.Info("winner declared", "player", *state.Winner)
				return *state.Winner, true
			}
			if game.Phase(state.Phase) == game.PhaseMath {
				log.Warn("too few players to reach the challenge phase", "active", state.ActivePlayerCount)
				return 0, false
			}
			log.Warn("no survivors left for the final draw")
			return 0, false
		case decideWait:
			continue
		}

		log.Debug("submitting action", "action", action.Type, "player", action.PlayerID, "card", action.CardID)
		if err := s.Submit(context.Background(), action); err != nil {
			if errors.Is(err, sessionerrors.ErrSessionClosed) {
				return 0, false
			}
			log.Warn("submit failed", "error", err)
		}
	}
	return 0, false
}

// latest drains queued messages and returns the newest snapshot. closed reports a closed feed.
func latest(feed <-chan []byte, state game.Snapshot) (game.Snapshot, bool) {
	for {
		select {
		case data, ok := <-feed:
			if !ok {
				return state, true
			}
			if s, isState := parseState(data); isState {
				state = s
			}
		default:
			return state, false
		}
	}
}

func parseState(data []byte) (game.Snapshot, bool) {
	var typeEnvelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typeEnvelope); err != nil || typeEnvelope.Type != "game_state" {
		return game.Snapshot{}, false
	}
	var state game.Snapshot
	if err := json.Unmarshal(data, &state); err != nil {
		return game.Snapshot{}, false
	}
	return state, true
}

func sleep(params *config.AutoHostParams, rng *rand.Rand) {
	delayMS := params.DelayMinMS
	if params.DelayMaxMS > params.DelayMinMS {
		delayMS = params.DelayMinMS + rng.Intn(params.DelayMaxMS-params.DelayMinMS)
	}
	if delayMS > 0 {
		time.Sleep(time.Duration(delayMS) * time.Millisecond)
	}
}
