package utils

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Every field is optional; anything
// left out keeps its default and command line flags override both.
type Config struct {
	ChunkSize     string            `yaml:"chunk-size"`
	Timeout       time.Duration     `yaml:"timeout"`
	KATimeout     time.Duration     `yaml:"keep-alive-timeout"`
	UserAgent     string            `yaml:"user-agent"`
	ProxyURL      string            `yaml:"proxy"`
	ProxyUsername string            `yaml:"proxy-username"`
	ProxyPassword string            `yaml:"proxy-password"`
	Headers       map[string]string `yaml:"headers"`
}

func DefaultConfig() Config {
	return Config{
		ChunkSize: fmt.Sprint(DefaultChunkSize),
		Timeout:   DefaultTimeout,
		KATimeout: DefaultKATimeout,
		UserAgent: ToolUserAgent,
		Headers:   map[string]string{},
	}
}

// LoadConfig reads path on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if _, err := ParseChunkSize(cfg.ChunkSize); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) HTTPClientConfig() HTTPClientConfig {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return HTTPClientConfig{
		Timeout:       c.Timeout,
		KATimeout:     c.KATimeout,
		ProxyURL:      c.ProxyURL,
		ProxyUsername: c.ProxyUsername,
		ProxyPassword: c.ProxyPassword,
		UserAgent:     c.UserAgent,
		Headers:       headers,
	}
}
