package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"chosen-one-server/challenge"
	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/sessionerrors"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.VictimRevealDelayMS = 20 // Short for testing
	return cfg
}

// startTestSession creates a session with a deterministic engine and starts its loop.
func startTestSession(t *testing.T, cfg *config.Config) (*Session, chan []byte) {
	t.Helper()
	send := make(chan []byte, 256)
	eng := game.NewEngine(rand.New(rand.NewSource(3)), challenge.FromTexts(nil))
	s := New("test-1", cfg, eng, send)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done
	})
	return s, send
}

func submit(t *testing.T, s *Session, a Action) {
	t.Helper()
	if err := s.Submit(context.Background(), a); err != nil {
		t.Fatalf("Submit(%v): %v", a.Type, err)
	}
}

func snapshot(t *testing.T, s *Session) game.Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

// waitForType reads from ch until a message of one of the given types arrives.
func waitForType(t *testing.T, ch chan []byte, timeout time.Duration, types ...string) (string, []byte) {
	t.Helper()
	timer := time.After(timeout)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed while waiting for %v", types)
			}
			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatalf("invalid message %s: %v", msg, err)
			}
			for _, typ := range types {
				if env.Type == typ {
					return typ, msg
				}
			}
		case <-timer:
			t.Fatalf("timed out waiting for %v", types)
		}
	}
}

func TestRunBroadcastsInitialState(t *testing.T) {
	_, send := startTestSession(t, testConfig())

	_, msg := waitForType(t, send, time.Second, "game_state")
	var snap game.Snapshot
	if err := json.Unmarshal(msg, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Started || snap.PhaseName != "not_started" {
		t.Errorf("expected a not started game, got %+v", snap)
	}
}

func TestStartGameUsesDefaultTotal(t *testing.T) {
	s, _ := startTestSession(t, testConfig())
	submit(t, s, Action{Type: ActionStartGame})

	snap := snapshot(t, s)
	if snap.TotalPlayers != 20 || snap.PhaseName != "math" {
		t.Errorf("expected 20 players in math phase, got %d in %s", snap.TotalPlayers, snap.PhaseName)
	}
}

func TestStartGameRejectsTooManyPlayers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTotalPlayers = 50
	s, send := startTestSession(t, cfg)

	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 51})
	_, msg := waitForType(t, send, time.Second, "error")
	if !strings.Contains(string(msg), "between 1 and 50") {
		t.Errorf("unexpected error %s", msg)
	}

	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: -2})
	_, msg = waitForType(t, send, time.Second, "error")
	if !strings.Contains(string(msg), "invalid configuration") {
		t.Errorf("unexpected error %s", msg)
	}
	if snapshot(t, s).Started {
		t.Error("rejected start should leave the game not started")
	}
}

func TestRejectedActionSendsError(t *testing.T) {
	s, send := startTestSession(t, testConfig())
	submit(t, s, Action{Type: ActionRequestRule})

	_, msg := waitForType(t, send, time.Second, "error")
	var e ErrorMsg
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(e.Message, "invalid transition") {
		t.Errorf("expected an invalid transition message, got %q", e.Message)
	}
}

// announceVictims resolves rules until one matches somebody, then returns the announcement.
func announceVictims(t *testing.T, s *Session, send chan []byte) VictimsAnnouncedMsg {
	t.Helper()
	for i := 0; i < 50; i++ {
		submit(t, s, Action{Type: ActionRequestRule})
		submit(t, s, Action{Type: ActionResolveRule})
		typ, msg := waitForType(t, send, time.Second, "victims_announced", "no_victims")
		if typ == "no_victims" {
			continue
		}
		var a VictimsAnnouncedMsg
		if err := json.Unmarshal(msg, &a); err != nil {
			t.Fatal(err)
		}
		return a
	}
	t.Fatal("no rule matched any player")
	return VictimsAnnouncedMsg{}
}

func TestEliminationIsCommittedAfterDelay(t *testing.T) {
	cfg := testConfig()
	cfg.VictimRevealDelayMS = 100
	s, send := startTestSession(t, cfg)
	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 40})

	a := announceVictims(t, s, send)
	if len(a.Victims) == 0 || len(a.Victims) > game.MaxVictimsPerRound {
		t.Fatalf("unexpected victims %v", a.Victims)
	}
	if a.RevealDelayMS != 100 {
		t.Errorf("expected reveal delay 100, got %d", a.RevealDelayMS)
	}

	// Victims are highlighted but still active during the reveal delay.
	snap := snapshot(t, s)
	for _, id := range a.Victims {
		p := snap.Players[id-1]
		if p.Status != "active" || !p.Highlighted {
			t.Errorf("victim %d during delay: %+v", id, p)
		}
	}
	submit(t, s, Action{Type: ActionRequestRule})
	waitForType(t, send, time.Second, "error")

	_, msg := waitForType(t, send, time.Second, "elimination_committed")
	var c EliminationCommittedMsg
	if err := json.Unmarshal(msg, &c); err != nil {
		t.Fatal(err)
	}
	if c.Round != a.Round || len(c.Victims) != len(a.Victims) {
		t.Errorf("commit %+v does not match announcement %+v", c, a)
	}

	snap = snapshot(t, s)
	for _, id := range a.Victims {
		if snap.Players[id-1].Status != "eliminated" {
			t.Errorf("expected victim %d eliminated, got %s", id, snap.Players[id-1].Status)
		}
	}
	if snap.ActivePlayerCount != 40-len(a.Victims) {
		t.Errorf("expected %d active, got %d", 40-len(a.Victims), snap.ActivePlayerCount)
	}
}

func TestRestartDropsPendingElimination(t *testing.T) {
	cfg := testConfig()
	cfg.VictimRevealDelayMS = 50
	s, send := startTestSession(t, cfg)
	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 40})
	announceVictims(t, s, send)

	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 40})
	time.Sleep(150 * time.Millisecond)

	snap := snapshot(t, s)
	if snap.ActivePlayerCount != 40 || snap.Round != 0 {
		t.Errorf("stale commit leaked into the new game: active=%d round=%d", snap.ActivePlayerCount, snap.Round)
	}
}

func TestChallengeAndFinalDraw(t *testing.T) {
	s, send := startTestSession(t, testConfig())
	winners := make(chan int, 1)
	s.OnWinner = func(_ string, playerID, _ int) { winners <- playerID }

	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 5})
	for id := 1; id <= 5; id++ {
		submit(t, s, Action{Type: ActionOpenBox, PlayerID: id})
		_, msg := waitForType(t, send, time.Second, "challenge_opened")
		var c ChallengeOpenedMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			t.Fatal(err)
		}
		if c.PlayerID != id || c.Text == "" {
			t.Errorf("unexpected challenge %+v", c)
		}
		submit(t, s, Action{Type: ActionSubmitOutcome, Passed: id <= 3})
		waitForType(t, send, time.Second, "challenge_resolved")
	}

	snap := snapshot(t, s)
	if !snap.AllBoxesOpened || !snap.CanAdvanceToFinal {
		t.Fatalf("expected to be able to advance, got %+v", snap)
	}

	submit(t, s, Action{Type: ActionAdvanceToFinal})
	_, msg := waitForType(t, send, time.Second, "final_draw_started")
	var f FinalDrawStartedMsg
	if err := json.Unmarshal(msg, &f); err != nil {
		t.Fatal(err)
	}
	if f.CardCount != 3 {
		t.Fatalf("expected 3 cards, got %d", f.CardCount)
	}

	for card := 1; card <= f.CardCount; card++ {
		submit(t, s, Action{Type: ActionPickCard, CardID: card})
		_, msg := waitForType(t, send, time.Second, "card_revealed")
		var r CardRevealedMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			t.Fatal(err)
		}
		if r.IsWinner {
			_, msg := waitForType(t, send, time.Second, "winner_declared")
			var w WinnerDeclaredMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				t.Fatal(err)
			}
			if w.PlayerID != r.PlayerID || w.CardID != card {
				t.Errorf("unexpected winner %+v for reveal %+v", w, r)
			}
			break
		}
	}

	select {
	case id := <-winners:
		if id < 1 || id > 3 {
			t.Errorf("winner %d did not pass the challenge", id)
		}
	case <-time.After(time.Second):
		t.Fatal("OnWinner was not called")
	}
}

func TestObserverFeed(t *testing.T) {
	send := make(chan []byte, 64)
	eng := game.NewEngine(rand.New(rand.NewSource(1)), nil)
	s := New("obs", testConfig(), eng, send)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	feed := make(chan []byte, 64)
	submit(t, s, Action{Type: ActionAttachObserver, Feed: feed})
	waitForType(t, feed, time.Second, "game_state")

	submit(t, s, Action{Type: ActionStartGame, TotalPlayers: 6})
	_, msg := waitForType(t, feed, time.Second, "game_state")
	if !strings.Contains(string(msg), `"totalPlayers":6`) {
		t.Errorf("observer did not receive the started game: %s", msg)
	}

	cancel()
	<-s.Done
	for range feed {
	}
}

func TestDetachObserverClosesFeed(t *testing.T) {
	s, _ := startTestSession(t, testConfig())
	feed := make(chan []byte, 64)
	submit(t, s, Action{Type: ActionAttachObserver, Feed: feed})
	submit(t, s, Action{Type: ActionDetachObserver, Feed: feed})

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-feed:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("feed was not closed")
		}
	}
}

func TestSubmitAfterClose(t *testing.T) {
	send := make(chan []byte, 64)
	s := New("closed", testConfig(), game.NewEngine(rand.New(rand.NewSource(1)), nil), send)
	go s.Run(context.Background())

	submit(t, s, Action{Type: ActionClose})
	<-s.Done

	if err := s.Submit(context.Background(), Action{Type: ActionRequestRule}); !errors.Is(err, sessionerrors.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, sessionerrors.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}
