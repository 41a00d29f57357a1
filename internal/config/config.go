package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env               string
	Port              string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string // HS256 secret used to verify Supabase auth tokens
	CORSOrigins       []string
	IBKRGatewayHost   string
	IBKRGatewayPort   string
	IBKRClientTimeout int // seconds; the gateway sits on the request path, keep it short
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8000"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	gatewayHost := viper.GetString("IBKR_GATEWAY_HOST")
	if gatewayHost == "" {
		gatewayHost = "localhost"
	}
	gatewayPort := viper.GetString("IBKR_GATEWAY_PORT")
	if gatewayPort == "" {
		gatewayPort = "5000"
	}
	timeout := viper.GetInt("IBKR_CLIENT_TIMEOUT")
	if timeout <= 0 {
		timeout = 5
	}

	origins := viper.GetString("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:3000"
	}

	return &Config{
		Env:               env,
		Port:              port,
		DatabaseURL:       viper.GetString("DATABASE_URL"),
		RedisURL:          viper.GetString("REDIS_URL"),
		JWTSecret:         viper.GetString("SUPABASE_JWT_SECRET"),
		CORSOrigins:       splitOrigins(origins),
		IBKRGatewayHost:   gatewayHost,
		IBKRGatewayPort:   gatewayPort,
		IBKRClientTimeout: timeout,
	}, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
