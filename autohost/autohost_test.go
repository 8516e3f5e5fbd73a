package autohost

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"chosen-one-server/challenge"
	"chosen-one-server/config"
	"chosen-one-server/game"
	"chosen-one-server/session"
)

func testParams(passChance int) *config.AutoHostParams {
	return &config.AutoHostParams{Name: "Santa", DelayMinMS: 0, DelayMaxMS: 2, PassChance: passChance, Strategy: "random"}
}

// startSession runs a session with short delays and attaches an observer feed.
func startSession(t *testing.T, seed int64) (*session.Session, chan []byte) {
	t.Helper()
	cfg := config.Defaults()
	cfg.VictimRevealDelayMS = 1
	eng := game.NewEngine(rand.New(rand.NewSource(seed)), challenge.FromTexts(nil))
	s := session.New("auto", cfg, eng, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done
	})

	feed := make(chan []byte, 256)
	if err := s.Submit(context.Background(), session.Action{Type: session.ActionAttachObserver, Feed: feed}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return s, feed
}

func runWithTimeout(t *testing.T, feed chan []byte, s *session.Session, params *config.AutoHostParams) (int, bool) {
	t.Helper()
	type result struct {
		winner int
		ok     bool
	}
	done := make(chan result, 1)
	go func() {
		w, ok := Run(feed, s, params, rand.New(rand.NewSource(9)))
		done <- result{w, ok}
	}()
	select {
	case r := <-done:
		return r.winner, r.ok
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not finish")
		return 0, false
	}
}

func TestRunPlaysToWinner(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		s, feed := startSession(t, seed)
		winner, ok := runWithTimeout(t, feed, s, testParams(100))
		if !ok {
			t.Fatalf("seed %d: expected a winner", seed)
		}

		snap, err := s.Snapshot(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if snap.Winner == nil || *snap.Winner != winner {
			t.Errorf("seed %d: Run returned %d, snapshot has %v", seed, winner, snap.Winner)
		}
		if snap.PhaseName != "final_draw" {
			t.Errorf("seed %d: expected final draw, got %s", seed, snap.PhaseName)
		}
		if snap.TotalPlayers != 20 {
			t.Errorf("seed %d: expected the default 20 players, got %d", seed, snap.TotalPlayers)
		}
	}
}

func TestRunStopsWhenEveryoneFails(t *testing.T) {
	s, feed := startSession(t, 4)
	if _, ok := runWithTimeout(t, feed, s, testParams(0)); ok {
		t.Error("expected no winner when every challenge fails")
	}
}

func TestRunStopsWhenTooFewPlayersForChallenges(t *testing.T) {
	cfg := config.Defaults()
	cfg.VictimRevealDelayMS = 0
	eng := game.NewEngine(rand.New(rand.NewSource(6)), challenge.FromTexts(nil))
	s := session.New("small", cfg, eng, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer func() {
		cancel()
		<-s.Done
	}()

	// Start before attaching so the first state the auto host sees is the 3-player game.
	if err := s.Submit(context.Background(), session.Action{Type: session.ActionStartGame, TotalPlayers: 3}); err != nil {
		t.Fatalf("start: %v", err)
	}
	feed := make(chan []byte, 256)
	if err := s.Submit(context.Background(), session.Action{Type: session.ActionAttachObserver, Feed: feed}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	params := testParams(100)
	params.DelayMaxMS = 0
	if _, ok := runWithTimeout(t, feed, s, params); ok {
		t.Error("expected no winner with three players")
	}

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.PhaseName != "math" || snap.TotalPlayers != 3 {
		t.Errorf("expected a 3-player game still in the math phase, got %s with %d players", snap.PhaseName, snap.TotalPlayers)
	}
	if snap.Round != 0 {
		t.Errorf("expected no rounds to be played, got %d", snap.Round)
	}
}

func TestRunExitsOnClosedChannel(t *testing.T) {
	feed := make(chan []byte)
	close(feed)
	s := session.New("closed", config.Defaults(), game.NewEngine(rand.New(rand.NewSource(1)), nil), nil)
	if _, ok := runWithTimeout(t, feed, s, testParams(50)); ok {
		t.Error("expected no winner from a closed feed")
	}
}

func TestDecide(t *testing.T) {
	strat, _ := Lookup("sequential")
	rng := rand.New(rand.NewSource(1))
	winner := 4

	cases := []struct {
		name  string
		state game.Snapshot
		want  session.ActionType
		d     decision
	}{
		{"not started", game.Snapshot{}, session.ActionStartGame, decideAct},
		{"math without rule", game.Snapshot{Started: true, Phase: int(game.PhaseMath), ActivePlayerCount: 12}, session.ActionRequestRule, decideAct},
		{"math with rule", game.Snapshot{Started: true, Phase: int(game.PhaseMath), ActivePlayerCount: 12, PendingRule: &game.RuleView{}}, session.ActionResolveRule, decideAct},
		{"math below challenge band", game.Snapshot{Started: true, Phase: int(game.PhaseMath), ActivePlayerCount: 3}, 0, decideStop},
		{"victims pending", game.Snapshot{Started: true, Phase: int(game.PhaseMath), Victims: []int{3}}, 0, decideWait},
		{"verdict pending", game.Snapshot{Started: true, Phase: int(game.PhaseChallenge), PendingChallenge: &game.ChallengeView{PlayerID: 2}}, session.ActionSubmitOutcome, decideAct},
		{"can advance", game.Snapshot{Started: true, Phase: int(game.PhaseChallenge), CanAdvanceToFinal: true}, session.ActionAdvanceToFinal, decideAct},
		{"no survivors", game.Snapshot{Started: true, Phase: int(game.PhaseChallenge)}, 0, decideStop},
		{"winner", game.Snapshot{Started: true, Phase: int(game.PhaseFinalDraw), Winner: &winner}, 0, decideStop},
	}
	for _, tc := range cases {
		a, d := decide(&tc.state, strat, rng, 50)
		if d != tc.d {
			t.Errorf("%s: expected decision %d, got %d", tc.name, tc.d, d)
			continue
		}
		if d == decideAct && a.Type != tc.want {
			t.Errorf("%s: expected action %d, got %d", tc.name, tc.want, a.Type)
		}
	}
}

func TestDecideUsesStrategy(t *testing.T) {
	strat, _ := Lookup("sequential")
	rng := rand.New(rand.NewSource(1))

	state := game.Snapshot{
		Started: true,
		Phase:   int(game.PhaseChallenge),
		Players: []game.PlayerView{
			{ID: 1, Status: "eliminated", Box: "pending"},
			{ID: 2, Status: "safe", Box: "opened", Result: "pass"},
			{ID: 3, Status: "active", Box: "pending"},
			{ID: 4, Status: "active", Box: "pending"},
		},
	}
	a, d := decide(&state, strat, rng, 50)
	if d != decideAct || a.Type != session.ActionOpenBox || a.PlayerID != 3 {
		t.Errorf("expected to open box 3, got %+v (%d)", a, d)
	}

	revealed := false
	state = game.Snapshot{
		Started: true,
		Phase:   int(game.PhaseFinalDraw),
		Cards: []game.CardView{
			{ID: 1, PlayerID: 2, Revealed: true, IsWinner: &revealed},
			{ID: 2, PlayerID: 3},
		},
	}
	a, d = decide(&state, strat, rng, 50)
	if d != decideAct || a.Type != session.ActionPickCard || a.CardID != 2 {
		t.Errorf("expected to pick card 2, got %+v (%d)", a, d)
	}
}

func TestStrategyRegistry(t *testing.T) {
	names := Names()
	if len(names) < 2 || names[0] != "random" || names[1] != "sequential" {
		t.Errorf("unexpected strategies %v", names)
	}
	if _, ok := Lookup("telepathic"); ok {
		t.Error("expected unknown strategy lookup to fail")
	}

	Register(Strategy{Name: "last", PickBox: func(_ *rand.Rand, c []int) int { return c[len(c)-1] }})
	s, ok := Lookup("last")
	if !ok {
		t.Fatal("expected registered strategy")
	}
	if got := s.PickBox(nil, []int{1, 2, 3}); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := s.PickCard(nil, []int{5, 6}); got != 5 {
		t.Errorf("expected nil PickCard to fall back to the first card, got %d", got)
	}
	delete(registry, "last")
}

func TestRandomStrategyStaysInCandidates(t *testing.T) {
	s, _ := Lookup("random")
	rng := rand.New(rand.NewSource(5))
	candidates := []int{4, 8, 15}
	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		got := s.PickCard(rng, candidates)
		if got != 4 && got != 8 && got != 15 {
			t.Fatalf("picked %d outside candidates", got)
		}
		seen[got] = true
	}
	if len(seen) != len(candidates) {
		t.Errorf("expected every candidate to be picked at least once, got %v", seen)
	}
}
