package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xackery/talktranslate/language"
)

// Provider names
const (
	ProviderDeepSeek = "deepseek"
	ProviderArk      = "ark"
)

// loadEnv overrides file settings with environment variables, and appends routes described by env
func (c *Config) loadEnv() error {
	var err error
	setString(&c.Discord.Token, "DISCORD_TOKEN")
	setString(&c.UsersDatabasePath, "USERS_DATABASE")
	setString(&c.LogLevel, "LOG_LEVEL")
	if strings.TrimSpace(os.Getenv("NATS_URL")) != "" {
		setString(&c.Nats.URL, "NATS_URL")
		c.Nats.IsEnabled = true
	}

	setString(&c.Completion.Provider, "COMPLETION_PROVIDER")
	setString(&c.Completion.BaseURL, "COMPLETION_BASE_URL")
	setString(&c.Completion.Model, "COMPLETION_MODEL")
	if strings.EqualFold(c.Completion.Provider, ProviderArk) {
		setString(&c.Completion.APIKey, "ARK_API_KEY")
		setString(&c.Completion.Model, "ARK_MODEL")
		setString(&c.Completion.BaseURL, "ARK_BASE_URL")
		setString(&c.Completion.Region, "ARK_REGION")
	} else {
		setString(&c.Completion.APIKey, "DEEPSEEK_API_KEY")
	}

	if c.Retry.MaxAttempts, err = parseIntEnv("RETRY_MAX_ATTEMPTS", c.Retry.MaxAttempts); err != nil {
		return err
	}
	if c.Retry.Delay.Duration, err = parseDurationEnv("RETRY_DELAY", c.Retry.Delay.Duration); err != nil {
		return err
	}
	if c.Retry.RateLimitDelay.Duration, err = parseDurationEnv("RATE_LIMIT_DELAY", c.Retry.RateLimitDelay.Duration); err != nil {
		return err
	}
	if c.KeepAliveRetry.Duration, err = parseDurationEnv("KEEP_ALIVE_RETRY", c.KeepAliveRetry.Duration); err != nil {
		return err
	}
	if c.Debug, err = parseBoolEnv("DEBUG", c.Debug); err != nil {
		return err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port != "" {
		c.API.Port, err = strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", port, err)
		}
	}

	jaChannel := strings.TrimSpace(os.Getenv("JAPANESE_CHANNEL_ID"))
	enChannel := strings.TrimSpace(os.Getenv("ENGLISH_CHANNEL_ID"))
	if (jaChannel == "") != (enChannel == "") {
		return fmt.Errorf("JAPANESE_CHANNEL_ID and ENGLISH_CHANNEL_ID must be set together")
	}
	if jaChannel != "" {
		c.Routes = append(c.Routes, BidirectionalRoutes(jaChannel, enChannel)...)
	}

	source := strings.TrimSpace(os.Getenv("SOURCE_CHANNEL_ID"))
	if source != "" {
		target := strings.ToLower(getEnvOrDefault("TARGET_LANGUAGE", language.English))
		c.Routes = append(c.Routes, FixedRoute(source, getEnvOrDefault("DESTINATION_CHANNEL_ID", source), target))
	}
	return nil
}

func isLanguage(code string) bool {
	return len(code) == 2 && language.IsValid(code)
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
