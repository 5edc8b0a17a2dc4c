package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "FBC"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "fbc_bot.db"
	defaultLogLevel       = "info"
	defaultGraphURL       = "https://graph.facebook.com/v2.6"
	defaultMusixmatchBase = "https://api.musixmatch.com/ws/1.1"
)

// AppConfig captures runtime configuration for the webhook relay.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	VerifyToken    string
	AccessToken    string
	AppSecret      string
	GraphURL       string
	MusixmatchKey  string
	MusixmatchBase string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("messenger.graph_url", defaultGraphURL)
	configViper.SetDefault("musixmatch.base_url", defaultMusixmatchBase)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		VerifyToken:    configViper.GetString("webhook.verify_token"),
		AccessToken:    configViper.GetString("messenger.access_token"),
		AppSecret:      configViper.GetString("messenger.app_secret"),
		GraphURL:       configViper.GetString("messenger.graph_url"),
		MusixmatchKey:  configViper.GetString("musixmatch.api_key"),
		MusixmatchBase: configViper.GetString("musixmatch.base_url"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.VerifyToken) == "" {
		return fmt.Errorf("webhook.verify_token is required")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("messenger.access_token is required")
	}
	if strings.TrimSpace(c.MusixmatchKey) == "" {
		return fmt.Errorf("musixmatch.api_key is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
