package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/smallwat3r/safes/internal/domain"
	"pkt.systems/pslog"
)

// maxBodySizeLimit caps MAX_BODY_SIZE. Safes live in memory.
const maxBodySizeLimit = 16 << 20

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	RequestTimeout    time.Duration

	// Request settings
	MaxBodySize int64

	// Frontend settings
	WebDir string

	// Logging settings
	LogLevel pslog.Level

	// Vault settings
	SweepInterval time.Duration // 0 disables the background sweep

	// Shutdown settings
	ShutdownTimeout time.Duration

	// Security settings
	RequireHTTPS bool // enforce HTTPS with HSTS header (disable with NO_HTTPS=1)
}

// Error reports a malformed environment variable. It is fatal: the process
// does not start.
type Error struct {
	Var string
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Var, e.Msg, e.Err)
	}
	return e.Var + " " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
		RequestTimeout:    60 * time.Second,

		MaxBodySize: domain.MaxRequestBodySize,

		WebDir: "web",

		LogLevel: pslog.InfoLevel,

		SweepInterval: 0,

		ShutdownTimeout: 5 * time.Second,

		RequireHTTPS: true, // secure default: enforce HTTPS
	}
}

// Load reads configuration from environment variables and validates it.
func Load() (Config, error) {
	cfg := DefaultConfig()

	// Server settings
	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return Config{}, &Error{Var: "PORT", Msg: "must be a valid port number", Err: err}
		}
		if n == 0 {
			return Config{}, &Error{Var: "PORT", Msg: "must be between 1 and 65535"}
		}
		cfg.Port = port
	}
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		dur, err := parsePositiveDuration("REQUEST_TIMEOUT", timeout)
		if err != nil {
			return Config{}, err
		}
		cfg.RequestTimeout = dur
	}

	// Request settings
	if size := os.Getenv("MAX_BODY_SIZE"); size != "" {
		n, err := humanize.ParseBytes(size)
		if err != nil {
			return Config{}, &Error{Var: "MAX_BODY_SIZE", Msg: "must be a byte size such as 32KiB", Err: err}
		}
		if n == 0 || n > maxBodySizeLimit {
			return Config{}, &Error{
				Var: "MAX_BODY_SIZE",
				Msg: "must be between 1B and " + humanize.IBytes(maxBodySizeLimit),
			}
		}
		cfg.MaxBodySize = int64(n)
	}

	// Frontend settings
	if dir := os.Getenv("WEB_DIR"); dir != "" {
		cfg.WebDir = dir
	}

	// Logging settings
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		lvl, ok := pslog.ParseLevel(level)
		if !ok {
			return Config{}, &Error{Var: "LOG_LEVEL", Msg: fmt.Sprintf("has unknown level %q", level)}
		}
		cfg.LogLevel = lvl
	}

	// Vault settings
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		dur, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, &Error{Var: "SWEEP_INTERVAL", Msg: "must be a valid duration", Err: err}
		}
		if dur < 0 {
			return Config{}, &Error{Var: "SWEEP_INTERVAL", Msg: "must not be negative"}
		}
		cfg.SweepInterval = dur
	}

	// Shutdown settings
	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		dur, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", timeout)
		if err != nil {
			return Config{}, err
		}
		cfg.ShutdownTimeout = dur
	}

	// Security settings
	if noHTTPS := os.Getenv("NO_HTTPS"); noHTTPS == "1" || noHTTPS == "true" {
		cfg.RequireHTTPS = false
	}

	return cfg, nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, &Error{Var: name, Msg: "must be a valid duration", Err: err}
	}
	if dur <= 0 {
		return 0, &Error{Var: name, Msg: "must be positive"}
	}
	return dur, nil
}

// ListenAddr returns the address string for the HTTP server.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}
