// Package config loads application configuration from environment
// variables.  Required values (secrets, database coordinates) abort
// startup when missing; operational tunables fall back to defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBDriver string // "mysql" (default) or "sqlite3" for local development
	DBUser   string // database username (mysql)
	DBPass   string // database password (mysql, optional)
	DBHost   string // database host address (mysql)
	DBPort   string // database port number (mysql)
	DBName   string // database name (mysql)
	DBPath   string // database file path (sqlite3)

	JWTSecret    string // secret used to sign admin JWTs
	AccessTTLMin int    // access token time-to-live in minutes

	AdminEmail        string // login identity for the admin surface
	AdminPasswordHash string // bcrypt hash of the admin password

	PaymentSecret string // shared secret for gateway signature verification

	SeatCount            int           // number of bookable seats, numbered from 1
	HoldDuration         time.Duration // lifetime of a seat hold
	SweepInterval        time.Duration // reclamation sweep period
	ExtendMaxTotal       time.Duration // cap on cumulative booking lifetime (0 = unbounded)
	ResetExpiryOnConfirm bool          // restart the expiry window at confirmation
}

// Load reads configuration from the environment (and .env when
// present).  Missing required variables cause a fatal log message.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		DBDriver: envStr("DB_DRIVER", "mysql"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 30),

		AdminEmail:        envStr("ADMIN_EMAIL", "admin@quicktap.local"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),

		PaymentSecret: must("PAYMENT_GATEWAY_SECRET"),

		SeatCount:            envInt("SEAT_COUNT", 100),
		HoldDuration:         time.Duration(envInt("HOLD_DURATION_MIN", 30)) * time.Minute,
		SweepInterval:        envDur("SWEEP_INTERVAL", 5*time.Minute),
		ExtendMaxTotal:       time.Duration(envInt("EXTEND_MAX_TOTAL_MIN", 120)) * time.Minute,
		ResetExpiryOnConfirm: envBool("RESET_EXPIRY_ON_CONFIRM", true),
	}

	switch cfg.DBDriver {
	case "sqlite3":
		cfg.DBPath = envStr("DB_PATH", "seatbooking.db")
	default:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}

	if cfg.SeatCount < 1 {
		log.Fatalf("SEAT_COUNT must be positive, got %d", cfg.SeatCount)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
