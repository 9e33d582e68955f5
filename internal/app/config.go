package app

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every env-driven knob read at bootstrap.
type Config struct {
	Port              int
	WebhookSecret     string
	DashboardPassword string
	SnapshotPath      string
	SnapshotMaxAge    time.Duration
	JournalPath       string
	ClientDir         string
	LogSinks          []string
	LogJSONPath       string
}

// LoadConfig reads the process environment with sane defaults. Missing or
// malformed values fall back silently; the service must come up on an empty
// environment.
func LoadConfig() Config {
	if path := getEnv("ENV_FILE", ""); path != "" {
		loadEnvFile(path)
	}

	sinks := []string{"console"}
	if raw := getEnv("LOG_SINKS", ""); raw != "" {
		sinks = sinks[:0]
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sinks = append(sinks, name)
			}
		}
	}
	return Config{
		Port:              getEnvInt("PORT", 10000),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		DashboardPassword: getEnv("DASH_PASSWORD", ""),
		SnapshotPath:      getEnv("SNAPSHOT_PATH", "markmon_state.json"),
		SnapshotMaxAge:    time.Duration(getEnvInt("SNAPSHOT_MAX_AGE_DAYS", 45)) * 24 * time.Hour,
		JournalPath:       getEnv("JOURNAL_PATH", ""),
		ClientDir:         getEnv("CLIENT_DIR", "static"),
		LogSinks:          sinks,
		LogJSONPath:       getEnv("LOG_JSON_PATH", ""),
	}
}

// loadEnvFile reads KEY=VALUE lines into the environment. Already-set
// variables win over file entries; a missing file is not an error.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		os.Setenv(key, value)
	}
}

// --------- Env helpers ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
