package golokal

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/golokal/cache"
)

// DefaultNamespace is used when no namespace is configured or requested.
const DefaultNamespace = "default"

// DefaultPollInterval is the poll interval used by DefaultConfig and the CLI.
const DefaultPollInterval = 30 * time.Second

// TranslationMap is an alias to the cache package type.
type TranslationMap = cache.TranslationMap

// CachedData is an alias to the cache package type.
type CachedData = cache.CachedData

// Config holds client configuration. It is copied by NewClient and never mutated afterwards.
type Config struct {
	APIKey        string        // Project API key; also scopes the persisted cache
	BaseURL       string        // Base address of the translations API
	DefaultLocale string        // Locale refreshed by the background/poll path
	Namespaces    []string      // Namespaces to preload (default: ["default"])
	PollInterval  time.Duration // Poll interval (0 disables polling)
	Storage       cache.Storage // Persistence backend (default: in-memory)
}

// DefaultConfig returns a Config with the default namespace and poll interval.
func DefaultConfig(apiKey, baseURL, defaultLocale string) Config {
	return Config{
		APIKey:        apiKey,
		BaseURL:       baseURL,
		DefaultLocale: defaultLocale,
		Namespaces:    []string{DefaultNamespace},
		PollInterval:  DefaultPollInterval,
	}
}

// Validate checks that all required fields are present and well formed.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "APIKey", Message: "required"}
	}
	if c.BaseURL == "" {
		return &ConfigError{Field: "BaseURL", Message: "required"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "BaseURL", Message: "must be an absolute http(s) URL"}
	}
	if c.DefaultLocale == "" {
		return &ConfigError{Field: "DefaultLocale", Message: "required"}
	}
	if c.PollInterval < 0 {
		return &ConfigError{Field: "PollInterval", Message: "must not be negative"}
	}
	for _, ns := range c.Namespaces {
		if strings.TrimSpace(ns) == "" {
			return &ConfigError{Field: "Namespaces", Message: "must not contain empty names"}
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if len(c.Namespaces) == 0 {
		c.Namespaces = []string{DefaultNamespace}
	} else {
		c.Namespaces = append([]string(nil), c.Namespaces...)
	}
	if c.Storage == nil {
		c.Storage = cache.NewMemoryStorage()
	}
	return c
}

// Locale describes one project locale as listed in the manifest.
type Locale struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	IsSource bool   `json:"isSource,omitempty"`
}

// UnmarshalJSON accepts either a locale object or a bare locale code.
func (l *Locale) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		*l = Locale{Code: code}
		return nil
	}

	type plain Locale
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Locale(p)
	return nil
}

// Manifest is the server-declared snapshot of available locales and namespaces.
// Version is optional; when empty, freshness is decided by per-namespace ETags alone.
type Manifest struct {
	Locales    []Locale `json:"locales"`
	Namespaces []string `json:"namespaces"`
	Version    string   `json:"version,omitempty"`
}

// LocaleCodes returns the codes of all manifest locales.
func (m Manifest) LocaleCodes() []string {
	codes := make([]string, len(m.Locales))
	for i, l := range m.Locales {
		codes[i] = l.Code
	}
	return codes
}

// translationsPayload is the success body of the translations endpoint.
type translationsPayload struct {
	Translations TranslationMap `json:"translations"`
}
