// Package config loads the service configuration from the environment.
//
// Invalid values never stop the service from starting: they are replaced by
// their defaults and reported as warnings for the caller to log.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap/zapcore"
)

const (
	EnvHost            = "PAYMENT_API_HOST"
	EnvPort            = "PAYMENT_API_PORT"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvServiceName     = "OTEL_SERVICE_NAME"
	EnvEnvironment     = "ENV"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFile         = "LOG_FILE"
	EnvApprovalRate    = "PAYMENT_APPROVAL_RATE"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Config is the complete runtime configuration.
type Config struct {
	Host string `default:"127.0.0.1"`
	Port int    `default:"8080"`

	// OTLPEndpoint is empty when tracing export is disabled.
	OTLPEndpoint string
	ServiceName  string `default:"paymentapi"`
	Environment  string `default:"dev"`

	LogLevel string `default:"info"`
	LogFile  string

	ApprovalRate    float64       `default:"0.8"`
	ShutdownTimeout time.Duration `default:"10s"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration through lookup. The returned warnings describe
// every value that was present but unusable and has been replaced by its default.
func Load(lookup LookupFunc) (Config, []string) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// Only reachable if the struct tags above are malformed.
		panic(fmt.Errorf("config: apply defaults: %w", err))
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvHost); ok {
		cfg.Host = v
	}

	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > math.MaxUint16 {
			warnf("Invalid %s value %q. Falling back to default port %d.", EnvPort, v, cfg.Port)
		} else {
			cfg.Port = port
		}
	}

	// The endpoint is used verbatim; validation happens when the exporter is built.
	if v, ok := lookup(EnvOTLPEndpoint); ok {
		cfg.OTLPEndpoint = v
	}

	if v, ok := get(EnvServiceName); ok {
		cfg.ServiceName = v
	}
	if v, ok := get(EnvEnvironment); ok {
		cfg.Environment = v
	}

	if v, ok := get(EnvLogLevel); ok {
		if _, err := zapcore.ParseLevel(v); err != nil {
			warnf("Invalid %s value %q. Falling back to %q.", EnvLogLevel, v, cfg.LogLevel)
		} else {
			cfg.LogLevel = v
		}
	}
	if v, ok := get(EnvLogFile); ok {
		cfg.LogFile = v
	}

	if v, ok := get(EnvApprovalRate); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(rate) || rate < 0 || rate > 1 {
			warnf("Invalid %s value %q. Falling back to %g.", EnvApprovalRate, v, cfg.ApprovalRate)
		} else {
			cfg.ApprovalRate = rate
		}
	}

	if v, ok := get(EnvShutdownTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			warnf("Invalid %s value %q. Falling back to %s.", EnvShutdownTimeout, v, cfg.ShutdownTimeout)
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	return cfg, warnings
}
