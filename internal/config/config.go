// Package config provides configuration for the editor agent. Values come
// from environment variables with sensible defaults; a .env file in the
// working directory is loaded first if present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".simple-video-editor"

	EnvPort     = "EDITOR_PORT"
	EnvLogLevel = "EDITOR_LOG_LEVEL"
	EnvDataDir  = "EDITOR_DATA_DIR"
	EnvMediaDir = "EDITOR_MEDIA_DIR"
	EnvHeadless = "EDITOR_HEADLESS"

	EnvGenBaseURL      = "EDITOR_GEN_BASE_URL"
	EnvGenToken        = "EDITOR_GEN_TOKEN"
	EnvGenTimeoutS     = "EDITOR_GEN_TIMEOUT_S"
	EnvGenPollInterval = "EDITOR_GEN_POLL_INTERVAL_S"

	DBFilename = "editor.db"

	DefaultGenTimeoutS      = 600 // generation can take minutes
	DefaultGenPollIntervalS = 2
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	Headless() bool
	GenBaseURL() string
	GenToken() string
	GenTimeout() time.Duration
	GenPollInterval() time.Duration
}

// EnvConfig reads configuration from the environment
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	mediaDir string
	headless bool

	genBaseURL       string
	genToken         string
	genTimeoutS      int
	genPollIntervalS int
}

// New loads .env (if any) and builds a config from defaults plus
// environment overrides.
func New() (*EnvConfig, error) {
	// A missing .env is fine; only a malformed one is an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		genTimeoutS:      DefaultGenTimeoutS,
		genPollIntervalS: DefaultGenPollIntervalS,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if md := os.Getenv(EnvMediaDir); md != "" {
		cfg.mediaDir = md
	}

	cfg.headless = os.Getenv(EnvHeadless) == "1" || os.Getenv(EnvHeadless) == "true"

	cfg.genBaseURL = os.Getenv(EnvGenBaseURL)
	cfg.genToken = os.Getenv(EnvGenToken)

	if ts := os.Getenv(EnvGenTimeoutS); ts != "" {
		v, err := strconv.Atoi(ts)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvGenTimeoutS)
		}
		cfg.genTimeoutS = v
	}

	if pi := os.Getenv(EnvGenPollInterval); pi != "" {
		v, err := strconv.Atoi(pi)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvGenPollInterval)
		}
		cfg.genPollIntervalS = v
	}

	return cfg, nil
}

func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir is where imported and generated media files live.
func (c *EnvConfig) MediaDir() string {
	if c.mediaDir != "" {
		return c.mediaDir
	}
	return filepath.Join(c.dataDir, "media")
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// GenBaseURL is the generation backend endpoint; empty means the stub
// client is used and generation requests fail terminally.
func (c *EnvConfig) GenBaseURL() string {
	return c.genBaseURL
}

func (c *EnvConfig) GenToken() string {
	return c.genToken
}

func (c *EnvConfig) GenTimeout() time.Duration {
	return time.Duration(c.genTimeoutS) * time.Second
}

func (c *EnvConfig) GenPollInterval() time.Duration {
	return time.Duration(c.genPollIntervalS) * time.Second
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
