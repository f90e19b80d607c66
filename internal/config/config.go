package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "CINEPROMPT"
	defaultHTTPAddress   = "0.0.0.0:3001"
	defaultDatabasePath  = "cineprompt.db"
	defaultAudioDir      = "public/audio"
	defaultAudioBaseURL  = "http://localhost:3001"
	defaultNarakeetURL   = "https://api.narakeet.com"
	defaultOpenAIModel   = "gpt-4"
	defaultLogLevelValue = "info"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	AudioDir        string
	AudioBaseURL    string
	NarakeetAPIKey  string
	NarakeetBaseURL string
	OpenAIAPIKey    string
	OpenAIModel     string
	LogLevel        string
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
	configViper.SetDefault("audio.dir", defaultAudioDir)
	configViper.SetDefault("audio.base_url", defaultAudioBaseURL)
	configViper.SetDefault("narakeet.base_url", defaultNarakeetURL)
	configViper.SetDefault("openai.model", defaultOpenAIModel)
	configViper.SetDefault("log.level", defaultLogLevelValue)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		AudioDir:        configViper.GetString("audio.dir"),
		AudioBaseURL:    configViper.GetString("audio.base_url"),
		NarakeetAPIKey:  configViper.GetString("narakeet.api_key"),
		NarakeetBaseURL: configViper.GetString("narakeet.base_url"),
		OpenAIAPIKey:    configViper.GetString("openai.api_key"),
		OpenAIModel:     configViper.GetString("openai.model"),
		LogLevel:        configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AudioDir) == "" {
		return fmt.Errorf("audio.dir is required")
	}
	return nil
}
