package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// Optional read-through cache for approved rubrics. Empty disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RubricTTL     time.Duration

	// Semantic embedding backend. Empty base URL means lexical-only matching.
	EmbedBaseURL string
	EmbedModel   string

	EnableLocalAuth bool
	// GuestExaminer allows examiner login with username==password. Development
	// convenience only; off by default.
	GuestExaminer bool
	AdminUser     string
	AdminPassHash string // bcrypt
	JWTSecret     string

	CORSOrigins []string

	LogLevel string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:        addr,
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         0,
		RubricTTL:       durOr("RUBRIC_CACHE_TTL", time.Hour),
		EmbedBaseURL:    os.Getenv("EMBED_BASE_URL"),
		EmbedModel:      envOr("EMBED_MODEL", "all-MiniLM-L6-v2"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		GuestExaminer:   envBool("GUEST_EXAMINER", false),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		JWTSecret:       envOr("JWT_SECRET", "dev-secret-change-me"),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:3010"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
	}
}
func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
func durOr(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
