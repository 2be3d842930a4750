package main

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfig is loaded from config.yaml (when present) and then
// overridden by environment variables. Flags only set the port.
type ServerConfig struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
	RedisAddr string `yaml:"redis_addr"`
	PistonURL string `yaml:"piston_url"`
	Gemini    struct {
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		APIVersion string `yaml:"api_version"`
	} `yaml:"gemini"`
	NATSURL        string `yaml:"nats_url"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`
	SessionTTLHrs  int    `yaml:"session_ttl_hours"`
}

func defaultConfig() *ServerConfig {
	config := &ServerConfig{}
	config.Server.Port = 5000
	config.RedisAddr = "localhost:6379"
	config.PistonURL = defaultPistonURL
	config.UploadMaxBytes = 256 * 1024
	config.SessionTTLHrs = 7 * 24
	return config
}

func loadConfig(path string) (*ServerConfig, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides lets the environment win over the config file, the
// same precedence the rest of the deployment tooling assumes.
func applyEnvOverrides(config *ServerConfig) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
	if v := os.Getenv("PISTON_URL"); v != "" {
		config.PistonURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		config.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_API_VERSION"); v != "" {
		config.Gemini.APIVersion = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		config.NATSURL = v
	}
	if v := os.Getenv("FILE_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			config.UploadMaxBytes = n
		}
	}
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.SessionTTLHrs = n
		}
	}
}
