package server

import (
	"strconv"
	"time"
)

// Config carries everything the engine needs at startup. Loading it
// from a file or flags is the embedder's problem; this package only
// consumes the object.
type Config struct {
	Listen  ListenConfig
	Conn    ConnConfig
	Pool    PoolConfig
	Static  StaticConfig
	Auth    AuthConfig
	Logging LoggingConfig
}

type ListenConfig struct {
	Host string
	Port uint16
}

func (l ListenConfig) Address() string {
	return l.Host + ":" + strconv.FormatUint(uint64(l.Port), 10)
}

type ConnConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

type PoolConfig struct {
	Workers        int
	MaxConnections int
}

type StaticConfig struct {
	Enabled   bool
	Directory string
}

type AuthConfig struct {
	Enabled        bool
	Users          map[string]string // username -> plaintext password, hashed at startup
	ProtectedPaths []string
}

type LoggingConfig struct {
	LogRequests bool
}

func DefaultConfig() Config {
	return Config{
		Listen: ListenConfig{Host: "127.0.0.1", Port: 8080},
		Conn: ConnConfig{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BufferSize:   8192,
		},
		Pool: PoolConfig{Workers: 4, MaxConnections: 100},
		Static: StaticConfig{
			Enabled:   true,
			Directory: "static",
		},
		Auth: AuthConfig{
			Enabled: true,
			Users: map[string]string{
				"admin": "password123",
				"user":  "secret",
			},
			ProtectedPaths: []string{"/admin"},
		},
		Logging: LoggingConfig{LogRequests: true},
	}
}
