package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort   string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	Redis        Redis         `yaml:"redis"`
	JWTSecretKey string        `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token-ttl" env:"TOKEN_TTL" env-default:"24h"`
	Rooms        Rooms         `yaml:"rooms"`
	WebSocket    WebSocket     `yaml:"websocket"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Rooms struct {
	IDLength int `yaml:"id-length" env:"ROOM_ID_LENGTH" env-default:"6"`
}

type WebSocket struct {
	// inbound frame limit in bytes
	ReadLimit int64 `yaml:"read-limit" env:"WS_READ_LIMIT" env-default:"512"`
	// outbound messages queued per connection before it is dropped
	SendBuffer int `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"256"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
