package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is used whenever API_URL is unset or blank.
const DefaultAPIURL = "http://localhost:4000"

type Config struct {
	Env      string
	LogLevel string

	APIURL   string
	HTTPPort string
	GRPCPort string

	StoreDriver string
	MongoURL    string
	MongoDB     string
	PsqlURL     string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	JWTSecret        string
	SocketAuth       bool
	AllowedOrigins   []string
	LeaderboardLimit int
}

// LoadConfig reads an optional .env file and then the process environment.
// A missing .env is fine; a malformed one is reported.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Config{
		Env:              getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		APIURL:           ResolveBaseURL(os.Getenv("API_URL")),
		HTTPPort:         getEnv("PORT", "4000"),
		GRPCPort:         getEnv("GRPC_PORT", "50057"),
		StoreDriver:      getEnv("STORE_DRIVER", "mongo"),
		MongoURL:         getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGO_DB", "battleide"),
		PsqlURL:          getEnv("PSQL_URL", "host=localhost port=5432 user=admin password=password dbname=battleide sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		SocketAuth:       getEnvBool("SOCKET_AUTH", false),
		AllowedOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "https://battleide02.vercel.app"}),
		LeaderboardLimit: getEnvInt("LEADERBOARD_LIMIT", 50),
	}

	return config, nil
}

// ResolveBaseURL returns raw without trailing slashes, or DefaultAPIURL when raw is blank.
func ResolveBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return DefaultAPIURL
	}
	return raw
}

// SocketURL maps an http(s) base URL onto the ws(s) endpoint served at /ws.
func SocketURL(base string) (string, error) {
	u, err := url.Parse(ResolveBaseURL(base))
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
