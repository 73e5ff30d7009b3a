package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rehab-service/internal/apiclient"
	"rehab-service/internal/board"
	"rehab-service/internal/config"
	"rehab-service/internal/liveboard"
	"rehab-service/internal/livesync"
	"rehab-service/internal/session"
	"rehab-service/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		gameID     int64
	)
	flag.StringVar(&configPath, "config", "courtboard.yaml", "path to config file")
	flag.Int64Var(&gameID, "game", 0, "game to open (overrides config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. Load Config
	cfg, err := config.LoadBoard(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file, %s\n", err)
		os.Exit(1)
	}
	if gameID != 0 {
		cfg.GameID = gameID
	}

	// 2. Init Logger
	logger.InitLogger(cfg.Mode)
	defer logger.Log.Sync()

	if cfg.GameID <= 0 {
		logger.Log.Fatal("no game selected, pass -game or set gameId")
	}
	strategy, err := board.ParseStrategy(cfg.Strategy)
	if err != nil {
		logger.Log.Fatal("invalid strategy", zap.String("strategy", cfg.Strategy))
	}

	// 3. Restore Session
	sessions, err := session.NewManager(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		logger.Log.Fatal("failed to restore session", zap.Error(err))
	}

	// 4. Wire Board
	client := apiclient.New(cfg.ServerURL, sessions)
	if err := verifySession(ctx, sessions, client); err != nil {
		logger.Log.Warn("could not verify saved session, keeping it", zap.Error(err))
	}
	pushURL, err := client.WebSocketURL()
	if err != nil {
		logger.Log.Fatal("invalid server url", zap.String("serverUrl", cfg.ServerURL), zap.Error(err))
	}

	out := newConsole(os.Stdout, sessions, client)
	ctrl := liveboard.New(client, liveboard.Options{
		GameID:       cfg.GameID,
		AutoFill:     board.AutoFillOptions{Strategy: strategy, Balance: cfg.Balance},
		PollInterval: cfg.PollInterval,
		PushURL:      pushURL,
		Token:        sessions.Token,
		Backoff:      livesync.Backoff{Base: cfg.Backoff.Base, Max: cfg.Backoff.Max},
		OnChange:     out.redraw,
		OnPushState:  out.pushState,
	})
	out.attach(ctrl)

	logger.Log.Info("Opening board",
		zap.Int64("gameID", cfg.GameID),
		zap.String("server", cfg.ServerURL),
		zap.Bool("authenticated", sessions.Authenticated()),
	)

	go ctrl.Run(ctx)
	go out.runClock(ctx)

	// 5. Serve Console
	if err := out.Serve(ctx, os.Stdin); err != nil {
		logger.Log.Error("console stopped", zap.Error(err))
	}
	cancel()
}

// verifySession checks a restored login against the server and refreshes the
// cached profile. A token the server no longer accepts is dropped.
func verifySession(ctx context.Context, sessions *session.Manager, client *apiclient.Client) error {
	if !sessions.Authenticated() {
		return nil
	}
	u, err := client.Me(ctx)
	if err != nil {
		var rej *apiclient.RejectedError
		if errors.As(err, &rej) && rej.Status == http.StatusUnauthorized {
			logger.Log.Info("saved session expired on the server, signing out")
			return sessions.Logout()
		}
		return err
	}
	return sessions.Refresh(*u)
}
