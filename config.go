package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mySocialApp/database"
	"mySocialApp/http"
	"mySocialApp/logging"
)

const (
	defaultPepper    = "secret-random-string"
	defaultJWTSecret = "secret-jwt-key"
)

// Config is the configuration of the app. It is read from a config.yaml file
// in "." or "./config" when present, and environment variables override it.
type Config struct {
	Port      int                  `mapstructure:"port"`
	Env       string               `mapstructure:"env"`
	Pepper    string               `mapstructure:"pepper"`
	JWT       JWTConfig            `mapstructure:"jwt"`
	Database  database.Config      `mapstructure:"database"`
	Redis     RedisConfig          `mapstructure:"redis"`
	CORS      CORSConfig           `mapstructure:"cors"`
	RateLimit http.RateLimitConfig `mapstructure:"rate_limit"`
	Log       logging.Config       `mapstructure:"log"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig is optional. Without an address, pair locks are held in process.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Validate refuses to run production on the development secrets.
func (c Config) Validate() error {
	if _, err := logging.ParseTrustedProxies(c.RateLimit.TrustedProxies); err != nil {
		return fmt.Errorf("config: rate_limit.trusted_proxies: %w", err)
	}
	if !c.IsProd() {
		return nil
	}
	if c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret {
		return errors.New("config: jwt.secret (JWT_SECRET) must be set in production")
	}
	if c.Pepper == "" || c.Pepper == defaultPepper {
		return errors.New("config: pepper (PEPPER) must be set in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("env", "dev")
	v.SetDefault("pepper", defaultPepper)
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", "168h")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "my_social_app")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/my_social_app.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cors.origins", []string{"https://my-social-app-frontend.vercel.app"})
	v.SetDefault("rate_limit.requests", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("rate_limit.trusted_proxies", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "my-social-app")
}

// envBindings maps config keys to the environment variables a hosting
// platform usually provides.
var envBindings = map[string]string{
	"port":               "PORT",
	"env":                "ENV",
	"pepper":             "PEPPER",
	"jwt.secret":         "JWT_SECRET",
	"jwt.ttl":            "JWT_TTL",
	"database.driver":    "DB_DRIVER",
	"database.host":      "DB_HOST",
	"database.port":      "DB_PORT",
	"database.user":      "DB_USER",
	"database.password":  "DB_PASSWORD",
	"database.name":      "DB_NAME",
	"database.sslmode":   "DB_SSLMODE",
	"database.file_path": "DB_FILE_PATH",
	"redis.address":      "REDIS_ADDRESS",
	"redis.password":     "REDIS_PASSWORD",
	"cors.origins":       "CORS_ORIGINS",
	"log.level":          "LOG_LEVEL",

	"rate_limit.trusted_proxies": "TRUSTED_PROXIES",
}

// LoadConfig reads the configuration. With isProd the env is forced to
// "prod", which makes Validate reject the development secrets.
func LoadConfig(isProd bool) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if isProd {
		c.Env = "prod"
	}
	if !c.IsProd() && !v.IsSet("log.pretty") {
		c.Log.Pretty = true
	}
	return c, c.Validate()
}
