package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// credential store selection: "postgres" | "mongo" | "memory"
	AuthStore string

	DBURL    string
	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	JWTTTLHours int

	CORSOrigins []string

	MailgunDomain string
	MailgunAPIKey string
	MailSender    string

	OtelEndpoint string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:       env,
		Port:      port,
		AuthStore: getEnv("AUTH_STORE", "postgres"),

		DBURL:    buildDBURL(),
		MongoURI: getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGO_DB", "cityhub"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		MailgunDomain: getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey: getEnv("MAILGUN_API_KEY", ""),
		MailSender:    getEnv("MAIL_SENDER", "CityHub <no-reply@cityhub.local>"),

		OtelEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "cityhub")
	pass := getEnv("DB_PASSWORD", "cityhub")
	name := getEnv("DB_NAME", "cityhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
