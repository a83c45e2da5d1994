package main

import (
	"chat-pulse/auth"
	"chat-pulse/contract"
	"chat-pulse/infrastructure/ws"
	"chat-pulse/observability"
	"chat-pulse/repositories"
	"chat-pulse/runtime"
	"chat-pulse/runtime/workers"
	"chat-pulse/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal arrives. Returning
// instead of exiting lets the deferred cleanups (badger, redis) run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users := repositories.NewUserRepository(db)
	friends := repositories.NewFriendRepository(db)
	rooms := repositories.NewRoomRepository(db)
	messages := repositories.NewMessageRepository(db, log, &config.LimitMessages)
	notifications := repositories.NewNotificationRepository(db)
	sessions := repositories.NewSessionRepository(db)

	// 3. Optional presence mirror
	var cache contract.PresenceCache
	if config.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword})
		defer func() { _ = rdb.Close() }()
		cache = repositories.NewPresenceCache(rdb, config.PresenceTTL, config.NodeID)
		log.Info("Presence mirror enabled", "redis", config.RedisAddr, "ttl", config.PresenceTTL)
	}

	// 4. Identity verification
	var verifier contract.IdentityVerifier = auth.ClientTrust{}
	if config.JWTSecret != "" {
		verifier = auth.NewTokenVerifier(config.JWTSecret)
	} else {
		log.Warn("JWT_SECRET is not set, trusting client supplied identities")
	}

	// 5. Live state & services
	registry := runtime.NewRegistry(log)
	roomManager := runtime.NewRoomManager(log, registry, rooms, users, sessions)
	presence := services.NewPresenceService(log, registry, users, friends, cache)
	notifier := services.NewNotificationService(log, registry, notifications, users)
	chat := services.NewChatService(log, registry, roomManager, rooms, messages, users, notifier, config.MaxContentLength)
	session := services.NewSessionService(log, registry, roomManager, sessions, users)
	connections := services.NewConnectionService(log, registry, roomManager, presence, verifier)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, registry, roomManager)
	monitoring := observability.NewMonitoringManager(log, orchestrator)
	sup.WithRestartRecorder(monitoring)

	// 6. Transport
	gateway := ws.NewGateway(log, connections, chat, session, monitoring, ws.ClientConfig{
		SendBufferSize: config.ConnectionBufferSize,
		WriteWait:      config.WriteWait,
		MaxFrameBytes:  config.MaxFrameBytes,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := ws.NewServer(log, address, gateway, monitoring, config.ShutdownTimeout)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	heartbeat := workers.NewHeartbeatWorker(log, registry, connections, presence, config.HeartbeatInterval)
	health := workers.NewHealthMonitoringWorker(log, monitoring, config.MetricInterval)

	done := make(chan error, 1)
	go func() {
		done <- orchestrator.Start(ctx, server, heartbeat, health)
	}()
	log.Info("Chat pulse started", slog.String("address", address), slog.Duration("heartbeat", config.HeartbeatInterval))

	// 8. Wait for Stop
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		orchestrator.Stop()
		if err := <-done; err != nil {
			return exitRuntime, err
		}
	case err := <-done:
		orchestrator.Stop()
		if err != nil {
			return exitRuntime, err
		}
	}

	log.Info("Program stopped cleanly")
	return exitOK, nil
}
