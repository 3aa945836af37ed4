package domain

import "time"

// Config is the runtime configuration shared across layers.
type Config struct {
	ListenAddr  string `yaml:"listenAddr"`
	ServiceName string `yaml:"serviceName"`

	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`

	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures the token provider.
type AuthConfig struct {
	JwtSecret string        `yaml:"jwtSecret"`
	Audience  string        `yaml:"audience"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}
