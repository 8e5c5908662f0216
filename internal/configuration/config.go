package configuration

import (
	"encoding/json"
	"fmt"
	"os"
)

type MongoConfig struct {
	Uri                     string `json:"uri"`
	Database                string `json:"database"`
	UsersCollection         string `json:"usersCollection"`
	ConversationsCollection string `json:"conversationsCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	ChannelsCollection      string `json:"channelsCollection"`
}

type RedisConfig struct {
	Enabled     bool   `json:"enabled"`
	Addr        string `json:"addr"`
	Password    string `json:"password"`
	DB          int    `json:"db"`
	PresenceKey string `json:"presenceKey"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	SocketRoute    string   `json:"socket_route"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type Config struct {
	Server ServerConfig `json:"server"`
	Mongo  MongoConfig  `json:"mongo"`
	Redis  RedisConfig  `json:"redis"`
	Auth   AuthConfig   `json:"auth"`
}

func LoadConfig(configPath string) (*Config, error) {
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Auth.JwtSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set")
	}
	if c.Mongo.Uri == "" || c.Mongo.Database == "" {
		return fmt.Errorf("mongo.uri and mongo.database must be set")
	}
	if c.Server.SocketRoute == "" {
		c.Server.SocketRoute = "ws"
	}
	if c.Mongo.UsersCollection == "" {
		c.Mongo.UsersCollection = "users"
	}
	if c.Mongo.ConversationsCollection == "" {
		c.Mongo.ConversationsCollection = "conversations"
	}
	if c.Mongo.MessagesCollection == "" {
		c.Mongo.MessagesCollection = "messages"
	}
	if c.Mongo.ChannelsCollection == "" {
		c.Mongo.ChannelsCollection = "channels"
	}
	return nil
}
