package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jbsmith7741/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "talktranslate.conf"

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config represents a configuration parse. It is built once at startup and not modified afterwards.
type Config struct {
	Debug              bool       `toml:"debug" desc:"Enable debug logging, very verbose"`
	LogLevel           string     `toml:"log_level" desc:"zerolog level: debug, info, warn, error"`
	IsKeepAliveEnabled bool       `toml:"keep_alive" desc:"Reconnect to discord when the session drops"`
	KeepAliveRetry     duration   `toml:"keep_alive_retry" desc:"How long before retrying to connect (requires keep_alive = true)"`
	UsersDatabasePath  string     `toml:"users_database" desc:"Optional file mapping discord user ids to display names"`
	Discord            Discord    `toml:"discord"`
	Completion         Completion `toml:"completion"`
	Retry              Retry      `toml:"retry"`
	API                API        `toml:"api"`
	Nats               Nats       `toml:"nats"`
	Routes             []Route    `toml:"routes" desc:"When a message is created in a source channel, how to translate and where to send it"`
}

// Discord represents config settings for discord
type Discord struct {
	Token             string `toml:"bot_token" desc:"Required. Found at https://discordapp.com/developers/ under your app's bot's section"`
	BotStatus         string `toml:"bot_status" desc:"Status to show below bot"`
	IsCommandsEnabled bool   `toml:"commands" desc:"Parse !commands in routed channels"`
	CommandPrefix     string `toml:"command_prefix" desc:"Prefix of text commands"`
}

// Completion represents config settings for the language model
type Completion struct {
	Provider    string   `toml:"provider" desc:"deepseek (default) or ark"`
	APIKey      string   `toml:"api_key" desc:"Required. Completion API credential"`
	BaseURL     string   `toml:"base_url" desc:"API root, default https://api.deepseek.com/v1"`
	Model       string   `toml:"model" desc:"Model name, default deepseek-chat"`
	Region      string   `toml:"region" desc:"ark only, region of the endpoint"`
	Temperature float64  `toml:"temperature" desc:"Translation temperature, default 0.7"`
	Timeout     duration `toml:"timeout" desc:"Per request timeout, 0 uses the transport default"`
	Languages   []string `toml:"languages" desc:"Two languages detection is biased toward"`
	Fallback    string   `toml:"fallback" desc:"Language code used when detection is ambiguous"`
}

// Retry represents config settings for the retry policy
type Retry struct {
	MaxAttempts    int      `toml:"max_attempts" desc:"Attempts per remote call"`
	Delay          duration `toml:"delay" desc:"Wait between generic failures"`
	RateLimitDelay duration `toml:"rate_limit_delay" desc:"Wait after a HTTP 429"`
}

// API represents the liveness http listener
type API struct {
	Host string `toml:"host" desc:"Address to bind, empty binds all interfaces"`
	Port int    `toml:"port" desc:"Port to bind, default 10000"`
}

// Nats represents config settings for publishing relay outcomes to nats
type Nats struct {
	IsEnabled     bool   `toml:"enabled" desc:"Publish every handled message to nats"`
	URL           string `toml:"url" desc:"Server url, e.g. nats://127.0.0.1:4222"`
	SubjectPrefix string `toml:"subject_prefix" desc:"Subjects are <prefix>.<route>.<outcome>"`
}

// Addr returns host:port
func (c API) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewDefault returns a config with every optional setting at its default
func NewDefault() *Config {
	return &Config{
		LogLevel:           "info",
		IsKeepAliveEnabled: true,
		KeepAliveRetry:     duration{10 * time.Second},
		Discord: Discord{
			BotStatus:         "Translating",
			IsCommandsEnabled: true,
			CommandPrefix:     "!",
		},
		Completion: Completion{
			Provider:    ProviderDeepSeek,
			Temperature: 0.7,
			Languages:   []string{"en", "ja"},
			Fallback:    "en",
		},
		Retry: Retry{
			MaxAttempts:    3,
			Delay:          duration{2 * time.Second},
			RateLimitDelay: duration{5 * time.Second},
		},
		API: API{
			Port: 10000,
		},
		Nats: Nats{
			SubjectPrefix: "talktranslate",
		},
	}
}

// Load builds the configuration: .env, then an optional toml file, then environment overrides, then Verify.
// Any failure here is fatal to the caller.
func Load(ctx context.Context) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := NewDefault()

	path, isExplicit := os.LookupEnv("CONFIG_PATH")
	if !isExplicit {
		path = defaultConfigPath
	}
	err = cfg.decodeFile(path, isExplicit)
	if err != nil {
		return nil, err
	}

	err = cfg.loadEnv()
	if err != nil {
		return nil, errors.Wrap(err, "env")
	}

	err = cfg.Verify()
	if err != nil {
		return nil, errors.Wrap(err, "verify")
	}

	cfg.applyLogLevel()
	return cfg, nil
}

func (c *Config) decodeFile(path string, isExplicit bool) error {
	if path == "" {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.Wrap(err, "config info")
		}
		if !isExplicit {
			return nil
		}
		err = os.WriteFile(path, []byte(defaultConfig), 0600)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		return fmt.Errorf("a new %s file was created, configure it and run again", path)
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory, should be a file", path)
	}

	_, err = toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	log.Debug().Str("path", path).Msg("config file loaded")
	return nil
}

func (c *Config) applyLogLevel() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if c.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Verify checks if config looks valid
func (c *Config) Verify() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord bot_token (DISCORD_TOKEN) must be set")
	}
	if c.Discord.CommandPrefix == "" {
		c.Discord.CommandPrefix = "!"
	}

	err := c.Completion.Verify()
	if err != nil {
		return errors.Wrap(err, "completion")
	}

	err = c.Retry.Verify()
	if err != nil {
		return errors.Wrap(err, "retry")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.API.Port)
	}

	if c.IsKeepAliveEnabled && c.KeepAliveRetry.Seconds() < 2 {
		c.KeepAliveRetry.Duration = 10 * time.Second
	}

	if c.Nats.IsEnabled {
		if c.Nats.URL == "" {
			return fmt.Errorf("nats url (NATS_URL) must be set when nats is enabled")
		}
		if c.Nats.SubjectPrefix == "" {
			c.Nats.SubjectPrefix = "talktranslate"
		}
	}

	if len(c.Routes) == 0 {
		return fmt.Errorf("no routes configured, set JAPANESE_CHANNEL_ID and ENGLISH_CHANNEL_ID, or SOURCE_CHANNEL_ID")
	}
	sources := make(map[string]int)
	for i := range c.Routes {
		err = c.Routes[i].Verify(c.Completion.Languages)
		if err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		prev, ok := sources[c.Routes[i].SourceChannelID]
		if ok {
			return fmt.Errorf("route %d: source channel %s already used by route %d", i, c.Routes[i].SourceChannelID, prev)
		}
		sources[c.Routes[i].SourceChannelID] = i
	}
	return nil
}

// Verify checks if completion config looks valid
func (c *Completion) Verify() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderDeepSeek
	}
	switch c.Provider {
	case ProviderDeepSeek:
		if c.APIKey == "" {
			return fmt.Errorf("api_key (DEEPSEEK_API_KEY) must be set")
		}
	case ProviderArk:
		if c.APIKey == "" {
			return fmt.Errorf("api_key (ARK_API_KEY) must be set")
		}
		if c.Model == "" {
			return fmt.Errorf("model (ARK_MODEL) must be set for ark")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range", c.Temperature)
	}
	if len(c.Languages) != 2 {
		return fmt.Errorf("languages must list exactly two codes, got %d", len(c.Languages))
	}
	for i, code := range c.Languages {
		c.Languages[i] = strings.ToLower(strings.TrimSpace(code))
		if !isLanguage(c.Languages[i]) {
			return fmt.Errorf("languages: invalid code %q", code)
		}
	}
	if c.Fallback == "" {
		c.Fallback = c.Languages[0]
	}
	if !isLanguage(c.Fallback) {
		return fmt.Errorf("fallback: invalid code %q", c.Fallback)
	}
	return nil
}

// Verify checks if retry config looks valid
func (c *Retry) Verify() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Delay.Duration < 0 || c.RateLimitDelay.Duration < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	return nil
}
