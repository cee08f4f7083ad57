package config

import (
	"strings"

	"occupancy-backend/utils"
)

// Settings is everything the process reads from the environment.
type Settings struct {
	Port         string
	LogLevel     string
	CORSOrigins  []string
	SeedDemo     bool
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	RedisChannel string
}

func Load() Settings {
	return Settings{
		Port:         utils.EnvOrDefault("PORT", "8080"),
		LogLevel:     utils.EnvOrDefault("LOG_LEVEL", "info"),
		CORSOrigins:  parseCorsOrigins(utils.EnvOrDefault("CORS_ORIGINS", "")),
		SeedDemo:     utils.EnvBool("DB_SEED_DEMO", false),
		RedisAddr:    utils.EnvOrDefault("REDIS_ADDR", ""),
		RedisPass:    utils.EnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:      utils.EnvInt("REDIS_DB", 0),
		RedisChannel: utils.EnvOrDefault("REDIS_CHANNEL", "occupancy.events"),
	}
}

func parseCorsOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
