package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, loaded from the environment.
// cmd/monitor loads a .env file first so local runs can keep settings
// next to the binary.
type Config struct {
	HTTPAddr string

	Assets       []string
	PrimaryAsset string
	Fiat         string
	Rows         int

	SearchURL    string
	FetchTimeout time.Duration

	IngestInterval time.Duration

	HistoryPath string
	ExportDir   string
	ArchivePath string

	DriveCredentials string
	DriveFolderID    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MailHost      string
	MailPort      int
	MailUsername  string
	MailPassword  string
	MailFrom      string
	MailRecipient string
}

// Load reads the environment and fills in defaults.
func Load() Config {
	return Config{
		HTTPAddr: envString("HTTP_ADDR", ":5000"),

		Assets:       envList("ASSETS", []string{"USDT", "BTC", "ETH", "BNB"}),
		PrimaryAsset: envString("PRIMARY_ASSET", "USDT"),
		Fiat:         envString("FIAT", "SDG"),
		Rows:         envInt("FETCH_ROWS", 20),

		SearchURL:    envString("BINANCE_SEARCH_URL", ""),
		FetchTimeout: envDuration("FETCH_TIMEOUT", 20*time.Second),

		IngestInterval: envDuration("INGEST_INTERVAL", 5*time.Minute),

		HistoryPath: envString("HISTORY_PATH", "data/price_history.json"),
		ExportDir:   envString("EXPORT_DIR", "excel_exports"),
		ArchivePath: envString("ARCHIVE_PATH", "data/snapshots.db"),

		DriveCredentials: os.Getenv("GOOGLE_DRIVE_CREDENTIALS"),
		DriveFolderID:    os.Getenv("GOOGLE_DRIVE_FOLDER_ID"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", time.Minute),

		MailHost:      envString("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:      envInt("MAIL_PORT", 587),
		MailUsername:  os.Getenv("MAIL_USERNAME"),
		MailPassword:  os.Getenv("MAIL_PASSWORD"),
		MailFrom:      os.Getenv("MAIL_DEFAULT_SENDER"),
		MailRecipient: os.Getenv("MAIL_RECIPIENT"),
	}
}

// MailConfigured reports whether the legacy mail path is usable.
func (c Config) MailConfigured() bool {
	return c.MailUsername != "" && c.MailPassword != ""
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}

func envList(key string, def []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
