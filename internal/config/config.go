package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBDSN           string        `env:"DB_DSN"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"lv-papertrade"`
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTTTL          time.Duration `env:"JWT_TTL" envDefault:"24h"`
	InternalToken   string        `env:"INTERNAL_API_TOKEN"`
	WebSocketOrigin string        `env:"WS_ORIGIN" envDefault:"*"`
	StartingBalance string        `env:"STARTING_BALANCE" envDefault:"10000"`
	QuoteInterval   time.Duration `env:"QUOTE_INTERVAL" envDefault:"2s"`
	QuoteVolatility float64       `env:"QUOTE_VOLATILITY" envDefault:"0.002"`
	AdminEmail      string        `env:"ADMIN_EMAIL"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
}

// Load reads .env when present, then the process environment. DB_DSN is
// optional: without it the journal is a no-op and state is memory-only.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := env.Parse(&c); err != nil {
		return c, err
	}
	if c.JWTSecret == "" {
		return c, errors.New("JWT_SECRET is required")
	}
	if c.InternalToken == "" {
		return c, errors.New("INTERNAL_API_TOKEN is required")
	}
	return c, nil
}
