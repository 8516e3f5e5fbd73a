package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"chosen-one-server/autohost"
	"chosen-one-server/config"
	"chosen-one-server/lobby"
	"chosen-one-server/random"
	"chosen-one-server/session"
)

// simulate plays games with the automatic host, without suspense or pacing delays.
// At most MaxSessions games run at once.
func simulate(ctx context.Context, base *config.Config, games, players int) error {
	cfg := *base
	cfg.VictimRevealDelayMS = 0
	cfg.AutoHost.DelayMinMS = 0
	cfg.AutoHost.DelayMaxMS = 0

	lob := lobby.New(ctx, &cfg)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.MaxSessions > 0 {
		g.SetLimit(cfg.MaxSessions)
	}

	var won, lost atomic.Int64
	for i := range games {
		g.Go(func() error {
			winner, ok, err := simulateGame(gctx, lob, &cfg, i+1, players)
			if err != nil {
				return fmt.Errorf("game %d: %w", i+1, err)
			}
			if ok {
				won.Add(1)
				slog.Info("game finished", "tag", "simulate", "game", i+1, "winner", winner)
			} else {
				lost.Add(1)
				slog.Info("game finished without survivors", "tag", "simulate", "game", i+1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("simulation complete", "tag", "simulate", "games", games, "won", won.Load(), "no_survivors", lost.Load())
	return nil
}

func simulateGame(ctx context.Context, lob *lobby.Lobby, cfg *config.Config, n, players int) (int, bool, error) {
	s, err := lob.Create(fmt.Sprintf("simulation-%d", n), nil)
	if err != nil {
		return 0, false, err
	}
	defer lob.Close(s.ID)

	seed := cfg.Seed
	if seed != 0 {
		seed += int64(n)
	}
	rng, err := random.NewRand(seed)
	if err != nil {
		return 0, false, err
	}

	feed := make(chan []byte, 256)
	// Start first so the attached feed opens on the started game.
	if err := s.Submit(ctx, session.Action{Type: session.ActionStartGame, TotalPlayers: players}); err != nil {
		return 0, false, err
	}
	if err := s.Submit(ctx, session.Action{Type: session.ActionAttachObserver, Feed: feed}); err != nil {
		return 0, false, err
	}

	winner, ok := autohost.Run(feed, s, &cfg.AutoHost, rng)
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return winner, ok, nil
}
