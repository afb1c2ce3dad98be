package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// FeedURL is the base URL of the remote rules feed.
	FeedURL string `koanf:"feed_url" validate:"required,http_url"`

	// FeedPath is joined onto FeedURL to form the fetch URL.
	FeedPath string `koanf:"feed_path" validate:"required"`

	// FeedHeaders are extra request headers in "Name=Value" form.
	FeedHeaders []string `koanf:"feed_headers" validate:"dive,header_pair"`

	// FetchTimeoutSeconds bounds a single feed request end to end.
	FetchTimeoutSeconds uint `koanf:"fetch_timeout_seconds" validate:"required,gte=1,lte=300"`

	// StorageDir is the directory holding the rules cache database.
	StorageDir string `koanf:"storage_dir" validate:"required"`

	// DecisionCacheSize caps the engine's memoized verdicts. Zero disables
	// the cache.
	DecisionCacheSize int `koanf:"decision_cache_size" validate:"gte=0"`

	// Aggressive permits blocking of first-party requests.
	Aggressive bool `koanf:"aggressive"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// DEFAULT_APP_CONFIG defines the default settings for the rules service:
// feed location, fetch timeout, cache sizing, and logging.
var DEFAULT_APP_CONFIG = AppConfig{
	FeedURL:             "https://rules.rulefeed.dev",
	FeedPath:            domain.DefaultFeedPath,
	FetchTimeoutSeconds: 30,
	StorageDir:          "/var/lib/rulefeed",
	DecisionCacheSize:   4096,
	Aggressive:          false,
	Env:                 "prod",
	LogLevel:            "info",
}

// Endpoint converts the configured feed settings into a domain.Endpoint,
// splitting each "Name=Value" header entry.
func (c *AppConfig) Endpoint() domain.Endpoint {
	headers := make(map[string]string, len(c.FeedHeaders))
	for _, h := range c.FeedHeaders {
		name, value, ok := strings.Cut(h, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return domain.NewEndpoint(c.FeedURL, c.FeedPath, headers)
}

// validHeaderPair validates a "Name=Value" header entry: the name must be
// non-empty and must not contain spaces or colons.
func validHeaderPair(fl validator.FieldLevel) bool {
	name, _, ok := strings.Cut(fl.Field().String(), "=")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	return name != "" && !strings.ContainsAny(name, " :")
}

// envLoader loads environment variables with the prefix "RULEFEED_",
// lowercasing keys and splitting list-valued entries. Swappable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "RULEFEED_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "RULEFEED_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ','
				})
				for i := range parts {
					parts[i] = strings.TrimSpace(parts[i])
				}
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG via the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation associates the "header_pair" tag with validHeaderPair.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("header_pair", validHeaderPair)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
