package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	GraphID  string `toml:"graph_id"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	Graph  GraphConfig  `toml:"graph"`
	Server ServerConfig `toml:"server"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadWithEnv loads the TOML file and applies environment overrides on top,
// so deployments can tweak single values without editing the file. A missing
// file is not fatal when the env carries the graph URI.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if os.Getenv("GRAPH_URI") == "" {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if uri := os.Getenv("GRAPH_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("GRAPH_USER"); user != "" {
		cfg.Graph.User = user
	}
	if pass := os.Getenv("GRAPH_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}
	if graphID := os.Getenv("GRAPH_ID"); graphID != "" {
		cfg.Graph.GraphID = graphID
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Graph.URI == "" {
		c.Graph.URI = "bolt://localhost:7687"
	}
	if c.Graph.GraphID == "" {
		c.Graph.GraphID = "domain"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
}
