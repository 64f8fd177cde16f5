package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"rental-chat/internal/activechat"
	"rental-chat/internal/auth"
	"rental-chat/internal/chatlist"
	"rental-chat/internal/config"
	"rental-chat/internal/db"
	grpcclient "rental-chat/internal/grpc"
	"rental-chat/internal/handlers"
	"rental-chat/internal/logger"
	"rental-chat/internal/middleware"
	"rental-chat/internal/observability"
	"rental-chat/internal/presence"
	"rental-chat/internal/rabbitmq"
	"rental-chat/internal/repositories"
	"rental-chat/internal/session"
	"rental-chat/internal/telemetry"
	"rental-chat/internal/ws"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("failed to init tracing", zap.Error(err))
	}

	database, err := db.Connect(ctx, cfg.DBDSN, log)
	if err != nil {
		log.Fatal("failed to connect to db", zap.Error(err))
	}

	messageRepo := repositories.NewMessageRepo(database)
	socketRepo := repositories.NewSocketRepo(database)
	// presence starts empty, so rows left by a previous process are stale
	if err := socketRepo.Reset(ctx); err != nil {
		log.Fatal("failed to reset presence mirror", zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment, log)
	log.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)))

	var cache chatlist.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, chat list cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			cache = chatlist.NewRedisCache(redisClient, "chatlist:", cfg.ChatListTTL)
		}
	}

	var users chatlist.UserDirectory = repositories.NewUserRepo(database)
	var userConn *grpc.ClientConn
	if cfg.UserGRPCAddr != "" {
		userConn, err = grpc.NewClient(cfg.UserGRPCAddr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		)
		if err != nil {
			log.Fatal("failed to connect to user grpc", zap.Error(err))
		}
		users = grpcclient.NewUserClient(userConn)
	}

	chats := chatlist.NewAggregator(messageRepo, users, cache, log)
	registry := presence.NewRegistry()
	tracker := activechat.NewTracker()
	hub := ws.NewHub(log)
	protocol := session.NewProtocol(messageRepo, chats, registry, tracker, socketRepo, hub, log)

	var verifier *auth.Verifier
	if cfg.AuthEnabled() {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	} else {
		log.Warn("JWT_SECRET not set, accepting unauthenticated requests")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online_users": registry.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatWS := ws.NewChatWebSocketHandler(hub, protocol, verifier, cfg.WSSendBuffer, log)
	router.GET("/ws", chatWS.Handle)

	api := router.Group("/api/chat")
	if verifier != nil {
		api.Use(middleware.AuthMiddleware(verifier))
	}
	handlers.NewChatHandler(messageRepo, chats, audit).RegisterRoutes(api)
	handlers.RegisterDebugRoutes(router, audit, registry, cfg.DebugRoutes)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("chat service listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"chat-service": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			err := server.Shutdown(ctx)
			hub.Close()
			if userConn != nil {
				_ = userConn.Close()
			}
			if redisClient != nil {
				_ = redisClient.Close()
			}
			_ = publisher.Close()
			return errors.Join(err, database.Close())
		},
		"tracing": shutdownTracing,
	})

	exitCode := <-wait
	log.Info("chat service exited", zap.Int("code", exitCode))
	_ = log.Sync()
	os.Exit(exitCode)
}
