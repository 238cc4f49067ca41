// Package config resolves runtime settings from the environment, an
// optional .env file, and the system keyring.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name the bot token is filed under.
	KeyringService = "magpie"
	keyringUser    = "bot-token"

	envToken     = "MAGPIE_TOKEN"
	envDBPath    = "MAGPIE_DB"
	envIgnore    = "MAGPIE_IGNORE"
	envRegex     = "MAGPIE_IGNORE_REGEX"
	envThreshold = "MAGPIE_OVERFLOW_THRESHOLD"
	envRetention = "MAGPIE_RETENTION_CAP"
	envRetDays   = "MAGPIE_RETENTION_DAYS"
	envDebug     = "MAGPIE_DEBUG"
)

var ErrNoToken = errors.New("no bot token: set MAGPIE_TOKEN or run `magpie setup`")

type Config struct {
	Token  string
	DBPath string

	IgnorePatterns []string
	IgnoreRegex    bool

	OverflowThreshold int
	RetentionCap      int
	RetentionDays     int

	Debug bool
}

// Load reads configuration. A .env file in the working directory is applied
// first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Token:             os.Getenv(envToken),
		DBPath:            os.Getenv(envDBPath),
		IgnorePatterns:    splitCSV(os.Getenv(envIgnore)),
		IgnoreRegex:       boolEnv(envRegex),
		OverflowThreshold: intEnv(envThreshold, 0),
		RetentionCap:      intEnv(envRetention, 0),
		RetentionDays:     intEnv(envRetDays, 0),
		Debug:             boolEnv(envDebug),
	}

	if cfg.Token == "" {
		tok, err := keyring.Get(KeyringService, keyringUser)
		if err == nil {
			cfg.Token = tok
		}
	}

	if cfg.DBPath == "" {
		path, err := xdg.DataFile("magpie/magpie.db")
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}

	return cfg, nil
}

// StoreToken files a token in the system keyring for later Load calls.
func StoreToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("not storing empty token")
	}
	return keyring.Set(KeyringService, keyringUser, token)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolEnv(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
