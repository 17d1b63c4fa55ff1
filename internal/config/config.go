package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DB       *DBconfig
	RabbitMq *RabbitMqconfig
	Redis    *Redisconfig
	Routing  *Routingconfig
	Pricing  *Pricingconfig
	Matching *Matchingconfig
	Srv      *Serviceconfig
	Log      *Loggerconfig
	App      *Appconfig
}

type DBconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type Redisconfig struct {
	Addr string `yaml:"addr"`
}

// Routingconfig points at an OSRM-compatible routing provider. The timeout is
// mandatory: a slow provider degrades the route to distance 0, it never hangs
// a request.
type Routingconfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Pricingconfig holds the delivery cost rates:
// total_cost = distance_km*RatePerKm + total_weight_kg*RatePerKg.
type Pricingconfig struct {
	RatePerKm float64 `yaml:"rate_per_km"`
	RatePerKg float64 `yaml:"rate_per_kg"`
}

type Matchingconfig struct {
	// MaxMatchRequests is how many coarse sender match-requests a post accepts
	// before it flips to Booked.
	MaxMatchRequests int `yaml:"max_match_requests"`
}

type Serviceconfig struct {
	DeliveryServicePort string `yaml:"delivery_service"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

type Appconfig struct {
	PublicJwtSecret string `yaml:"public_jwt_secret"`
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			fmt.Printf("using default key %v\n", def)
			return def
		}
		return val
	}

	getEnvFloat := func(key string, def float64) float64 {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "dropx_user"),
			Password: getEnv("DB_PASSWORD", "dropx_pass"),
			Database: getEnv("DB_NAME", "dropx_db"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: &Redisconfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Routing: &Routingconfig{
			BaseURL:        getEnv("ROUTING_BASE_URL", "http://localhost:5000"),
			TimeoutSeconds: getEnvInt("ROUTING_TIMEOUT_SECONDS", 5),
		},
		Pricing: &Pricingconfig{
			RatePerKm: getEnvFloat("RATE_PER_KM", 1.0),
			RatePerKg: getEnvFloat("RATE_PER_KG", 0.5),
		},
		Matching: &Matchingconfig{
			MaxMatchRequests: getEnvInt("MAX_MATCH_REQUESTS", 3),
		},
		Srv: &Serviceconfig{
			DeliveryServicePort: getEnv("DELIVERY_SERVICE_PORT", "3000"),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		App: &Appconfig{
			PublicJwtSecret: getEnv("PUBLIC_JWT_SECRET", "supersecret"),
		},
	}

	return cnf, nil
}
