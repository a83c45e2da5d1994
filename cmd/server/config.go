package main

import "time"

type Config struct {
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxFrameBytes        int64         `env:"MAX_FRAME_BYTES,default=65536"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	LimitMessages        int           `env:"LIMIT_MESSAGES,default=50"`
	JWTSecret            string        `env:"JWT_SECRET"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	PresenceTTL          time.Duration `env:"PRESENCE_TTL,default=90s"`
	NodeID               string        `env:"NODE_ID,default=chat-pulse"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
}
