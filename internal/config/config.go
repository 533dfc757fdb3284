package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultPeerPort  = 50000
	DefaultRelayPort = 50001
)

type AppConfig struct {
	PeerHost string
	PeerPort int

	RelayHost       string
	RelayPort       int
	RelayWSAddr     string
	RelayStatusAddr string
	RelayMatchID    string

	RedisURL    string
	DatabaseURL string

	SendQueueSize int
	MessagesDir   string
}

// PeerAddr is the host:port a direct peer listens on or dials.
func (c *AppConfig) PeerAddr() string {
	return net.JoinHostPort(c.PeerHost, strconv.Itoa(c.PeerPort))
}

// RelayAddr is the host:port of the matchmaking relay.
func (c *AppConfig) RelayAddr() string {
	return net.JoinHostPort(c.RelayHost, strconv.Itoa(c.RelayPort))
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		PeerHost:      "127.0.0.1",
		PeerPort:      DefaultPeerPort,
		RelayHost:     "127.0.0.1",
		RelayPort:     DefaultRelayPort,
		RelayMatchID:  "default",
		SendQueueSize: 64,
	}

	if v := strings.TrimSpace(os.Getenv("PEER_HOST")); v != "" {
		cfg.PeerHost = v
	}
	if v := strings.TrimSpace(os.Getenv("RELAY_HOST")); v != "" {
		cfg.RelayHost = v
	}

	var err error
	if cfg.PeerPort, err = portFromEnv("PEER_PORT", cfg.PeerPort); err != nil {
		return nil, err
	}
	if cfg.RelayPort, err = portFromEnv("RELAY_PORT", cfg.RelayPort); err != nil {
		return nil, err
	}

	cfg.RelayWSAddr = strings.TrimSpace(os.Getenv("RELAY_WS_ADDR"))
	cfg.RelayStatusAddr = strings.TrimSpace(os.Getenv("RELAY_STATUS_ADDR"))
	if v := strings.TrimSpace(os.Getenv("RELAY_MATCH_ID")); v != "" {
		cfg.RelayMatchID = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SEND_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueueSize = n
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if cfg.RedisURL != "" && !strings.HasPrefix(cfg.RedisURL, "redis://") && !strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return nil, fmt.Errorf("REDIS_URL must use redis:// or rediss://")
	}
	return cfg, nil
}

func portFromEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%s must be a port between 1 and 65535, got %q", key, v)
	}
	return n, nil
}
