package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/client/auth"
	"github.com/prajyotgorlewar/BattleIDE/internal/client/dashboard"
	"github.com/prajyotgorlewar/BattleIDE/internal/client/session"
	"github.com/prajyotgorlewar/BattleIDE/internal/config"
	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	apiURL := pflag.String("api-url", cfg.APIURL, "base URL of the BattleIDE API")
	userID := pflag.String("user-id", "", "user id to sign in as")
	token := pflag.String("token", "", "bearer token; minted from --jwt-secret when empty")
	secret := pflag.String("jwt-secret", cfg.JWTSecret, "secret used to mint tokens")
	logLevel := pflag.String("log-level", cfg.LogLevel, "log level")
	pflag.Parse()

	zapLogger, err := logger.New(cfg.Env, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if *userID == "" {
		zapLogger.Fatal("--user-id is required")
	}

	var tokens auth.TokenSource = auth.StaticToken(*token)
	if *token == "" {
		tokens = auth.JWTSource{Manager: jwt.NewJWTManager(*secret), UserID: *userID, TTL: 5 * time.Minute}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run(ctx, *apiURL, auth.State{Loaded: true, UserID: *userID, Tokens: tokens}, zapLogger)
}

func run(ctx context.Context, apiURL string, signedIn auth.State, log *zap.Logger) {
	provider := auth.NewProvider(auth.State{})

	manager := session.NewManager(apiURL, &session.WebsocketDialer{Logger: log}, session.WithLogger(log))
	loader := dashboard.NewLoader(dashboard.NewClient(apiURL, dashboard.WithLogger(log)), log)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		_ = manager.Watch(ctx, provider.Identities(ctx))
	}()
	go func() {
		defer wg.Done()
		states, cancel := provider.Subscribe()
		defer cancel()
		loader.Watch(ctx, states)
	}()
	go func() {
		defer wg.Done()
		printDashboard(ctx, loader)
	}()
	go func() {
		defer wg.Done()
		printEvents(ctx, manager, log)
	}()

	provider.Set(signedIn)
	<-ctx.Done()

	loader.Close()
	_ = manager.Close()
	wg.Wait()
}

func printDashboard(ctx context.Context, loader *dashboard.Loader) {
	states, cancel := loader.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			switch {
			case st.Loading:
				fmt.Println("dashboard: loading")
			case st.Error != "":
				fmt.Printf("dashboard: error: %s\n", st.Error)
			case st.Profile != nil:
				fmt.Printf("dashboard: %s (rating %d)\n", st.Profile.Username, st.Profile.Rating)
				for _, e := range st.Leaderboard {
					fmt.Printf("  #%d %-20s %d\n", e.Rank, e.Username, e.Rating)
				}
			}
		}
	}
}

func printEvents(ctx context.Context, manager *session.Manager, log *zap.Logger) {
	snapshots, cancel := manager.Subscribe()
	defer cancel()

	var events <-chan model.Event
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			log.Info("session", zap.Stringer("state", snap.State), zap.String("userId", snap.Identity))
			events = nil
			if snap.Channel != nil {
				events = snap.Channel.Events()
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			fmt.Printf("event: %s %s\n", ev.Type, ev.Payload)
		}
	}
}
