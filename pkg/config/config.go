package config

import (
	"github.com/go-ini/ini"
	"github.com/sirupsen/logrus"
)

// Config is the application configuration.
type Config struct {
	Server     ServerConfig     `ini:"server"`
	Cache      CacheConfig      `ini:"cache"`
	Etcd       EtcdConfig       `ini:"etcd"`
	Validation ValidationConfig `ini:"validation"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Port        string `ini:"port"`         // listen port
	Mode        string `ini:"mode"`         // debug/release
	ServiceName string `ini:"service_name"` // name used for etcd registration
	ServiceAddr string `ini:"service_addr"` // advertised address
}

// CacheConfig configures the report cache.
type CacheConfig struct {
	MaxBytes int64 `ini:"max_bytes"` // cache budget in bytes
}

// EtcdConfig configures optional service registration.
type EtcdConfig struct {
	Endpoints string `ini:"endpoints"` // comma separated endpoints, empty disables registration
	Prefix    string `ini:"prefix"`    // key prefix
	TTL       int64  `ini:"ttl"`       // lease TTL in seconds
}

// ValidationConfig configures comparison defaults.
type ValidationConfig struct {
	DefaultDriver  string `ini:"default_driver"`   // sqlite or duckdb
	MaxProblemRows int    `ini:"max_problem_rows"` // cap on rows returned per problem-rows query
}

// LoadConfig reads an ini file into Config.
func LoadConfig(filePath string) (*Config, error) {
	cfg := &Config{}

	err := ini.MapTo(cfg, filePath)
	if err != nil {
		logrus.Errorf("Failed to load config file: %v", err)
		return nil, err
	}

	if cfg.Validation.DefaultDriver == "" {
		cfg.Validation.DefaultDriver = "sqlite"
	}
	if cfg.Validation.MaxProblemRows <= 0 {
		cfg.Validation.MaxProblemRows = 1000
	}

	logrus.Infof("Config loaded successfully from: %s", filePath)
	return cfg, nil
}
