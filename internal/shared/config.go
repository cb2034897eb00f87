package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	// SHR upstream
	Environment  string // uat | production
	ClientID     string
	ClientSecret string
	HotelCode    string
	PropertyID   int

	AdminToken string

	Workers     int
	WarmIDs     []int
	CacheTTL    time.Duration
	UpstreamRPS int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/bys?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		Environment:  env("SHR_ENVIRONMENT", "uat"),
		ClientID:     env("SHR_CLIENT_ID", ""),
		ClientSecret: env("SHR_CLIENT_SECRET", ""),
		HotelCode:    env("SHR_HOTEL_CODE", ""),
		PropertyID:   atoi("SHR_PROPERTY_ID", 0),
		AdminToken:   env("BYS_ADMIN_TOKEN", ""),
		Workers:      atoi("WARM_WORKERS", 4),
		WarmIDs:      intList(os.Getenv("WARM_PROPERTY_IDS")),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,
		UpstreamRPS:  atoi("SHR_RPS", 5),
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		log.Warn().Msg("SHR_CLIENT_ID / SHR_CLIENT_SECRET are empty; upstream calls will fail until configured")
	}
	if c.Environment != "uat" && c.Environment != "production" {
		log.Warn().Str("environment", c.Environment).Msg("unknown SHR_ENVIRONMENT, falling back to uat")
		c.Environment = "uat"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// intList parses a comma-separated ID list ("12001,12002").
func intList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}
