package configs

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	Server  ServerConfig
	HTTP    HTTPConfig
	Engine  EngineConfig
	Pool    PoolConfig
	Session SessionConfig
}

type AppConfig struct {
	Mode string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig is the engine binary and option profile for engines the pool
// creates: the server's factory applies Threads, HashSizeMB and MultiPV, and
// individual sessions may still override via SetOption. The depth and time
// fields are loaded but nothing reads them.
type EngineConfig struct {
	BinaryPath    string
	DefaultDepth  int
	DefaultTimeMs int
	MaxDepth      int
	MaxTimeMs     int
	Threads       int
	HashSizeMB    int
	MultiPV       int
}

// HTTPConfig bounds inbound request volume, independent of the pool's own
// engine-checkout throttle.
type HTTPConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// PoolConfig bounds how many engines may be checked out simultaneously and
// how fast new checkouts are admitted.
type PoolConfig struct {
	Capacity          int
	CheckoutPerSecond float64
	CheckoutBurst     int
}

// SessionConfig controls how long a session waits for handshake and
// isready/readyok before giving up.
type SessionConfig struct {
	HandshakeTimeout time.Duration
	ReadyTimeout     time.Duration
}

func Load() *Config {
	viper.SetDefault("APP_MODE", "debug")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "30s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")

	viper.SetDefault("ENGINE_BINARY_PATH", "stockfish")
	viper.SetDefault("ENGINE_DEFAULT_DEPTH", 15)
	viper.SetDefault("ENGINE_DEFAULT_TIME_MS", 1000)
	viper.SetDefault("ENGINE_MAX_DEPTH", 24)
	viper.SetDefault("ENGINE_MAX_TIME_MS", 30000)
	viper.SetDefault("ENGINE_THREADS", 1)
	viper.SetDefault("ENGINE_HASH_SIZE_MB", 128)
	viper.SetDefault("ENGINE_MULTI_PV", 1)

	viper.SetDefault("HTTP_RATE_LIMIT_PER_SECOND", 20.0)
	viper.SetDefault("HTTP_RATE_LIMIT_BURST", 40)

	viper.SetDefault("POOL_CAPACITY", 16)
	viper.SetDefault("POOL_CHECKOUT_PER_SECOND", 50.0)
	viper.SetDefault("POOL_CHECKOUT_BURST", 10)

	viper.SetDefault("SESSION_HANDSHAKE_TIMEOUT", "5s")
	viper.SetDefault("SESSION_READY_TIMEOUT", "5s")

	viper.AutomaticEnv()

	readTimeout, _ := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	writeTimeout, _ := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	shutdownTimeout, _ := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	handshakeTimeout, _ := time.ParseDuration(viper.GetString("SESSION_HANDSHAKE_TIMEOUT"))
	readyTimeout, _ := time.ParseDuration(viper.GetString("SESSION_READY_TIMEOUT"))

	return &Config{
		App: AppConfig{
			Mode: viper.GetString("APP_MODE"),
		},
		Server: ServerConfig{
			Port:            viper.GetInt("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Engine: EngineConfig{
			BinaryPath:    viper.GetString("ENGINE_BINARY_PATH"),
			DefaultDepth:  viper.GetInt("ENGINE_DEFAULT_DEPTH"),
			DefaultTimeMs: viper.GetInt("ENGINE_DEFAULT_TIME_MS"),
			MaxDepth:      viper.GetInt("ENGINE_MAX_DEPTH"),
			MaxTimeMs:     viper.GetInt("ENGINE_MAX_TIME_MS"),
			Threads:       viper.GetInt("ENGINE_THREADS"),
			HashSizeMB:    viper.GetInt("ENGINE_HASH_SIZE_MB"),
			MultiPV:       viper.GetInt("ENGINE_MULTI_PV"),
		},
		HTTP: HTTPConfig{
			RateLimitPerSecond: viper.GetFloat64("HTTP_RATE_LIMIT_PER_SECOND"),
			RateLimitBurst:     viper.GetInt("HTTP_RATE_LIMIT_BURST"),
		},
		Pool: PoolConfig{
			Capacity:          viper.GetInt("POOL_CAPACITY"),
			CheckoutPerSecond: viper.GetFloat64("POOL_CHECKOUT_PER_SECOND"),
			CheckoutBurst:     viper.GetInt("POOL_CHECKOUT_BURST"),
		},
		Session: SessionConfig{
			HandshakeTimeout: handshakeTimeout,
			ReadyTimeout:     readyTimeout,
		},
	}
}
