package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Listen string

	ProfileDir  string
	AbilityFile string

	CacheDir     string
	CacheTTL     time.Duration
	CacheEntries int

	Workers int
	Strict  bool

	LogLevel string

	SentryDSN       string
	RecaptchaSecret string
}

func Default() Config {
	return Config{
		Listen:       ":8080",
		ProfileDir:   "profiles",
		AbilityFile:  "spelldata/abilities.csv",
		CacheDir:     "_cache",
		CacheTTL:     24 * time.Hour,
		CacheEntries: 256,
		Workers:      4,
		LogLevel:     "info",
	}
}

// Load reads .env (when present) and then the environment.
func Load() (Config, error) {
	err := godotenv.Load(".env")
	if err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function, falling back to
// Default for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("LOGREPLAY_LISTEN", &c.Listen)
	str("LOGREPLAY_PROFILES", &c.ProfileDir)
	str("LOGREPLAY_ABILITIES", &c.AbilityFile)
	str("LOGREPLAY_CACHE_DIR", &c.CacheDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("SENTRY_DSN", &c.SentryDSN)
	str("GOOGLE_RECAPTCHA_V3_SECRET", &c.RecaptchaSecret)

	if v := getenv("LOGREPLAY_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, errors.Wrap(err, "LOGREPLAY_CACHE_TTL")
		}
		c.CacheTTL = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"LOGREPLAY_CACHE_ENTRIES", &c.CacheEntries},
		{"LOGREPLAY_WORKERS", &c.Workers},
	}
	for _, e := range ints {
		v := getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c, errors.Errorf("%s: expected a positive number, got %q", e.key, v)
		}
		*e.dst = n
	}

	if v := getenv("LOGREPLAY_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, errors.Wrap(err, "LOGREPLAY_STRICT")
		}
		c.Strict = b
	}

	return c, nil
}
