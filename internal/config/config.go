package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qanoon/legal-assistant/backend/internal/model/chat"
	"github.com/qanoon/legal-assistant/backend/internal/store"
)

// Config aggregates the service configuration.
type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Store      StoreConfig
	Chat       ChatConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	completionCfg, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Completion: completionCfg,
		Store:      loadStoreConfig(),
		Chat:       chatCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// CompletionConfig points at the remote completion endpoint.
type CompletionConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadCompletionConfig() (CompletionConfig, error) {
	timeoutSeconds, err := parseOptionalIntEnv("COMPLETION_TIMEOUT")
	if err != nil {
		return CompletionConfig{}, err
	}

	timeout := 60 * time.Second
	if timeoutSeconds != nil {
		if *timeoutSeconds <= 0 {
			return CompletionConfig{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive, got %d", *timeoutSeconds)
		}
		timeout = time.Duration(*timeoutSeconds) * time.Second
	}

	return CompletionConfig{
		BaseURL: getEnvOrDefault("API_URL", "https://ai-lawyer-back-end.vercel.app"),
		Timeout: timeout,
	}, nil
}

// StoreConfig describes the document database. An empty URI selects the
// in-memory store.
type StoreConfig struct {
	MongoURI string
	Database string
}

// Enabled reports whether a database is configured.
func (c StoreConfig) Enabled() bool {
	return c.MongoURI != ""
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		MongoURI: strings.TrimSpace(os.Getenv("MONGO_URI")),
		Database: getEnvOrDefault("MONGO_DB", "legal_assistant"),
	}
}

// ChatConfig tunes the conversation subsystem.
type ChatConfig struct {
	RequireLogin    bool
	RecentLimit     int
	RefreshDelay    time.Duration
	DefaultLanguage chat.Language
}

func loadChatConfig() (ChatConfig, error) {
	requireLogin, err := parseBoolEnv("REQUIRE_LOGIN", true)
	if err != nil {
		return ChatConfig{}, err
	}

	limit := store.DefaultRecentLimit
	if limitOverride, err := parseOptionalIntEnv("RECENT_CHATS_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if limitOverride != nil {
		if *limitOverride < 1 {
			return ChatConfig{}, fmt.Errorf("RECENT_CHATS_LIMIT must be at least 1, got %d", *limitOverride)
		}
		limit = *limitOverride
	}

	delay := 2 * time.Second
	if delayOverride, err := parseOptionalIntEnv("RECENTS_REFRESH_DELAY_MS"); err != nil {
		return ChatConfig{}, err
	} else if delayOverride != nil {
		if *delayOverride < 0 {
			return ChatConfig{}, fmt.Errorf("RECENTS_REFRESH_DELAY_MS must not be negative, got %d", *delayOverride)
		}
		delay = time.Duration(*delayOverride) * time.Millisecond
	}

	language := chat.Language(getEnvOrDefault("DEFAULT_LANGUAGE", string(chat.LanguageEnglish)))
	if !language.Valid() {
		return ChatConfig{}, fmt.Errorf("invalid DEFAULT_LANGUAGE value: %q", language)
	}

	return ChatConfig{
		RequireLogin:    requireLogin,
		RecentLimit:     limit,
		RefreshDelay:    delay,
		DefaultLanguage: language,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
