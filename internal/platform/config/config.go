package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"wikibridge/internal/bridge/cooldown"
)

// Server captures process-level configuration.
type Server struct {
	Addr       string
	LedgerPath string
	AdminToken string
	LogLevel   slog.Level

	// Wiki settings: the Action API endpoint used for page reads and the
	// public base URL used when building guidance links for users.
	WikiAPIURL  string
	WikiBaseURL string
	SubpageName string
	WikiTimeout time.Duration

	CooldownWindow time.Duration
	CacheTTL       time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Durations below their enforced floors are clamped, not rejected, matching
// the wiki-facing abuse policy.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("WIKIBRIDGE_ADDR", ":8080"),
		LedgerPath:     envOr("WIKIBRIDGE_LEDGER_PATH", "account_bridge.json"),
		AdminToken:     os.Getenv("WIKIBRIDGE_ADMIN_TOKEN"),
		LogLevel:       levelOr("WIKIBRIDGE_LOG_LEVEL", slog.LevelInfo),
		WikiAPIURL:     envOr("WIKIBRIDGE_WIKI_API_URL", "https://example.com/w/api.php"),
		WikiBaseURL:    envOr("WIKIBRIDGE_WIKI_BASE_URL", "https://example.com"),
		SubpageName:    envOr("WIKIBRIDGE_SUBPAGE", "WikiCraft"),
		WikiTimeout:    durationOr("WIKIBRIDGE_WIKI_TIMEOUT", 10*time.Second),
		CooldownWindow: durationOr("WIKIBRIDGE_COOLDOWN", cooldown.MinWindow),
		CacheTTL:       durationOr("WIKIBRIDGE_CACHE_TTL", 20*time.Second),
	}

	cfg.WikiBaseURL = strings.TrimRight(cfg.WikiBaseURL, "/")
	if cfg.CooldownWindow < cooldown.MinWindow {
		cfg.CooldownWindow = cooldown.MinWindow
	}
	return cfg
}

// UserPageURL returns the public URL of a user's wiki page.
func (c Server) UserPageURL(username string) string {
	return c.WikiBaseURL + "/wiki/User:" + username
}

// SubpageURL returns the public URL of a user's ownership subpage.
func (c Server) SubpageURL(username string) string {
	return c.UserPageURL(username) + "/" + c.SubpageName
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func levelOr(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			return level
		}
	}
	return fallback
}
