package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"chosen-one-server/api"
	"chosen-one-server/config"
	"chosen-one-server/hostauth"
	"chosen-one-server/lobby"
	"chosen-one-server/loghandler"
	"chosen-one-server/ws"
)

const shutdownWait = 5 * time.Second

func main() {
	games := flag.Int("simulate", 0, "play this many games with the automatic host, print the results and exit")
	players := flag.Int("players", 0, "players per simulated game (0 uses default_total_players)")
	flag.Parse()

	var level slog.LevelVar
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, &level)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}

	cfg := config.Load()
	if l, err := loghandler.ParseLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid log level, using info", "tag", "main", "error", err)
	} else {
		level.Set(l)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *games > 0 {
		err = simulate(ctx, cfg, *games, *players)
	} else {
		err = serve(ctx, cfg)
	}
	if err != nil {
		slog.Error("exiting", "tag", "main", "error", err)
		os.Exit(1)
	}
}

// serve runs the host console WebSocket endpoint and the read-only API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	validator, err := hostauth.New(cfg.HostAuthSecret, cfg.HostAuthJWKSURL)
	if err != nil {
		return err
	}
	var auth ws.Authenticator
	if validator.Enabled() {
		auth = validator
		slog.Info("host authentication enabled", "tag", "main")
	} else {
		slog.Info("host authentication disabled; every host console is accepted", "tag", "main")
	}

	slog.Info("configuration", "tag", "main",
		"default_players", cfg.DefaultTotalPlayers, "max_players", cfg.MaxTotalPlayers,
		"reveal_delay_ms", cfg.VictimRevealDelayMS, "max_sessions", cfg.MaxSessions, "port", cfg.WSPort)

	g, gctx := errgroup.WithContext(ctx)

	lob := lobby.New(gctx, cfg)
	hub := ws.NewHub(cfg, lob, auth, hostauth.TokenFromRequest)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(cfg, lob).Register(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WSPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("Chosen One server listening", "tag", "main", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
