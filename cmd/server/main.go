package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	echoapi "github.com/SanVenturas/Tavern-Register/api/echo"
	"github.com/SanVenturas/Tavern-Register/cache"
	rediscache "github.com/SanVenturas/Tavern-Register/cache/redis"
	"github.com/SanVenturas/Tavern-Register/config"
	"github.com/SanVenturas/Tavern-Register/domain"
	"github.com/SanVenturas/Tavern-Register/internal/broker"
	"github.com/SanVenturas/Tavern-Register/internal/federation"
	"github.com/SanVenturas/Tavern-Register/internal/server"
	"github.com/SanVenturas/Tavern-Register/internal/tavern"
	"github.com/SanVenturas/Tavern-Register/log"
	"github.com/SanVenturas/Tavern-Register/mongodb"
	"github.com/SanVenturas/Tavern-Register/tracing"
)

var (
	appLogger      log.Logger
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting tavern-register broker", map[string]interface{}{
		"http_port":  cfg.HTTPPort,
		"public_url": cfg.PublicURL,
		"mongo_db":   cfg.MongoDBName,
		"redis":      cfg.RedisAddr != "",
		"log_level":  logLevel.String(),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	// Durable binding store.
	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	bindingRepo, err := mongodb.NewBindingRepositoryMongo(ctx, mongodb.GetDB())
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize BindingRepository", err)
	}

	// Transient token stores: Redis when configured, in-process otherwise.
	var (
		stateStore  cache.StateStore
		ticketStore cache.TicketStore
		redisClient *goredis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			appLogger.Fatal(ctx, "Failed to ping Redis", pingErr)
		}
		stateStore = rediscache.NewStateStore(redisClient, cfg.RedisPrefix)
		ticketStore = rediscache.NewTicketStore(redisClient, cfg.RedisPrefix)
	} else {
		stateStore = cache.NewMemoryStateStore()
		ticketStore = cache.NewMemoryTicketStore()
	}

	// OAuth providers.
	registry := federation.NewRegistry()
	registerProviders(ctx, cfg, registry)

	// Remote account service client.
	tavernClient := tavern.NewClient(
		cfg.TavernBaseURL,
		cfg.TavernAdminHandle,
		cfg.TavernAdminPassword,
		&http.Client{Timeout: cfg.TavernTimeout()},
	)

	brokerService := broker.NewService(registry, stateStore, ticketStore, bindingRepo, tavernClient)
	api := echoapi.NewRegistrationAPI(brokerService, mongodb.Ping)

	e := server.NewHTTPServer(cfg, appLogger, api)

	go func() {
		if serveErr := e.Start(":" + cfg.HTTPPort); serveErr != nil && serveErr != http.ErrServerClosed {
			appLogger.Fatal(ctx, "HTTP server failed", serveErr)
		}
	}()
	appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"port": cfg.HTTPPort})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info(ctx, "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	stateStore.Close()
	ticketStore.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			appLogger.Error(shutdownCtx, "Redis client close error", err)
		}
	}
	mongodb.CloseMongoDB(shutdownCtx)
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}
	appLogger.Info(ctx, "Shutdown complete")
}

// registerProviders wires every provider with configured credentials.
func registerProviders(ctx context.Context, cfg *config.ServerConfig, registry *federation.Registry) {
	base := strings.TrimRight(cfg.PublicURL, "/")
	redirectURL := func(p domain.Provider) string {
		return fmt.Sprintf("%s/auth/%s/callback", base, p)
	}

	if cfg.GitHubClientID != "" {
		p, err := federation.NewGitHubProvider(federation.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  redirectURL(domain.ProviderGitHub),
		})
		if err != nil {
			appLogger.Fatal(ctx, "Failed to configure GitHub provider", err)
		}
		registry.Register(p)
	}
	if cfg.GoogleClientID != "" {
		p, err := federation.NewGoogleProvider(federation.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirectURL(domain.ProviderGoogle),
		})
		if err != nil {
			appLogger.Fatal(ctx, "Failed to configure Google provider", err)
		}
		registry.Register(p)
	}
}
