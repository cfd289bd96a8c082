package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qanoon/legal-assistant/backend/internal/auth"
	"github.com/qanoon/legal-assistant/backend/internal/config"
	"github.com/qanoon/legal-assistant/backend/internal/handler"
	chathandler "github.com/qanoon/legal-assistant/backend/internal/handler/chat"
	"github.com/qanoon/legal-assistant/backend/internal/service/completion"
	"github.com/qanoon/legal-assistant/backend/internal/service/dispatch"
	"github.com/qanoon/legal-assistant/backend/internal/service/recents"
	"github.com/qanoon/legal-assistant/backend/internal/service/session"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	documentStore, closeStore := openStore(ctx, cfg.Store)
	defer closeStore()

	notifier := session.NewNotifier()
	sessions := session.NewManager(documentStore, notifier)
	view := recents.NewView(documentStore, cfg.Chat.RecentLimit, cfg.Chat.RefreshDelay, notifier)
	prompts := chathandler.NewPrompts(notifier)

	completer := completion.NewClient(cfg.Completion.BaseURL, cfg.Completion.Timeout)
	log.Printf("completion endpoint: %s", cfg.Completion.BaseURL)

	dispatcher := dispatch.New(sessions, completer, view, prompts, cfg.Chat.RequireLogin)
	dispatcher.SetLanguage(cfg.Chat.DefaultLanguage)

	identity := auth.NewBroadcaster()
	identity.Subscribe(sessions.HandleAuthChange)
	identity.Subscribe(view.HandleAuthChange)
	identity.Subscribe(func(user *auth.User) {
		if user != nil {
			prompts.DismissLogin()
		}
	})

	go logPersistFailures(sessions)

	router := handler.NewRouter(sessions, view, dispatcher, prompts, auth.HeaderResolver{}, identity, notifier)

	startServer(ctx, cfg.Server, router)

	view.Stop()
	sessions.Flush()
}

// openStore connects to Mongo when configured, otherwise falls back to the
// in-memory store for local development.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func()) {
	if !cfg.Enabled() {
		log.Println("MONGO_URI not set, using in-memory store (conversations are lost on restart)")
		return store.NewMemory(), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		log.Fatalf("failed to ping mongodb: %v", err)
	}

	mongoStore := store.NewMongo(client.Database(cfg.Database))
	if err := mongoStore.EnsureIndexes(connectCtx); err != nil {
		log.Printf("warning: failed to ensure indexes: %v", err)
	}
	log.Printf("connected to mongodb database %q", cfg.Database)

	return mongoStore, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Printf("failed to disconnect from mongodb: %v", err)
		}
	}
}

// logPersistFailures drains the manager's failed-write channel. A retry
// policy would hook in here without changing the manager's contract.
func logPersistFailures(sessions *session.Manager) {
	for failure := range sessions.PersistFailures() {
		log.Printf("[main] message persist failed for session=%s sender=%s: %v",
			failure.SessionID, failure.Message.Sender, failure.Err)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("legal assistant backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
