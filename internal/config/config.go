// Package config provides functionality for managing configuration options
// for the sync agent using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the agent.
type Options struct {
	// Addr is the control API's listening address (ip:port).
	Addr string

	// APIBaseURL is the remote library API's base URL, no trailing slash.
	APIBaseURL string

	// StoreDriver selects the persistence backend: file, postgres or redis.
	StoreDriver string

	// StorePath is the store file location for the file driver.
	StorePath string

	// DatabaseDSN holds the connection string for the postgres driver.
	DatabaseDSN string

	// RedisAddr is the host:port for the redis driver.
	RedisAddr string

	// Secret derives the key that encrypts sensitive stored values.
	Secret string

	// SyncIntervalSec is how often (seconds) the worker drains the queue.
	SyncIntervalSec int

	// LogLevel is the zap log level (debug, info, warn, error).
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8081", "control API ip:port")
	flag.StringVar(&options.APIBaseURL, "u", "http://localhost:8080", "library API base URL")
	flag.StringVar(&options.StoreDriver, "s", "file", "store driver: file | postgres | redis")
	flag.StringVar(&options.StorePath, "f", "shelfsync.json", "store file path (file driver)")
	flag.StringVar(&options.DatabaseDSN, "d", "", "postgres DSN (postgres driver)")
	flag.StringVar(&options.RedisAddr, "r", "localhost:6379", "redis address (redis driver)")
	flag.StringVar(&options.Secret, "secret", "", "secret for sensitive-value encryption")
	flag.IntVar(&options.SyncIntervalSec, "i", 30, "sync interval in seconds")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct
// containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		options.Addr = addr
	}
	if base := os.Getenv("API_BASE_URL"); base != "" {
		options.APIBaseURL = base
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		options.StoreDriver = driver
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		options.RedisAddr = addr
	}
	if secret := os.Getenv("SHELFSYNC_SECRET"); secret != "" {
		options.Secret = secret
	}

	return options
}
