package configuration

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"Chatline/internal/auth"
	"Chatline/internal/db"
	"Chatline/internal/handler"
	"Chatline/internal/hub"
	"Chatline/internal/metrics"
	"Chatline/internal/middleware"
	"Chatline/internal/model"
	"Chatline/internal/presence"
	"Chatline/internal/repo"
)

const defaultConfigPath = "config.json"

type Container struct {
	Hub            *hub.Hub
	ChannelHandler handler.ChannelHandler
	MessageHandler handler.MessageHandler
	MonitorHandler handler.MonitorHandler
	Auth           *middleware.AuthMiddleware
	Metrics        *metrics.Collector
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoDatabase *mongo.Database
	redisClient   *redis.Client
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("CHATLINE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	users := db.NewRepository[model.User](con, config.Mongo.UsersCollection)
	conversations := db.NewRepository[model.Conversation](con, config.Mongo.ConversationsCollection)
	messages := db.NewRepository[model.Message](con, config.Mongo.MessagesCollection)
	channels := db.NewRepository[model.Channel](con, config.Mongo.ChannelsCollection)

	// the unique pair index is what makes concurrent first-contact safe
	indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsurePairIndex(indexCtx, conversations); err != nil {
		return nil, fmt.Errorf("failed to ensure conversation index: %w", err)
	}

	userRepo := repo.NewUserRepository(users)
	conversationRepo := repo.NewConversationRepository(conversations, messages, logger)
	messageRepo := repo.NewMessageRepository(messages, conversations, channels, logger)
	channelRepo := repo.NewChannelRepository(channels, logger)

	verifier := auth.NewJWTVerifier(config.Auth.JwtSecret, config.Auth.Issuer)
	collector := metrics.NewCollector()

	var registry presence.Registry
	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		registry = presence.NewRedisRegistry(redisClient, config.Redis.PresenceKey, logger)
	} else {
		registry = presence.NewLocalRegistry()
	}

	gatewayHub := hub.NewHub(hub.Deps{
		Presence:       registry,
		Users:          userRepo,
		Conversations:  conversationRepo,
		Messages:       messageRepo,
		Channels:       channelRepo,
		Verifier:       verifier,
		Metrics:        collector,
		Logger:         logger,
		AllowedOrigins: config.Server.AllowedOrigins,
	})

	monitorService := hub.NewMonitorService(gatewayHub)

	return &Container{
		Hub:            gatewayHub,
		ChannelHandler: handler.NewChannelHandler(channelRepo, userRepo, messageRepo, gatewayHub, logger),
		MessageHandler: handler.NewMessageHandler(conversationRepo, messageRepo),
		MonitorHandler: handler.NewMonitorHandler(monitorService),
		Auth:           middleware.NewAuthMiddleware(verifier),
		Metrics:        collector,
		Config:         *config,
		Logger:         logger,
		mongoDatabase:  con,
		redisClient:    redisClient,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}

	if c.mongoDatabase != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDatabase.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
