// Package logging provides structured logging configuration.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration options.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// New creates a new configured zap logger.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, err
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
	}

	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build(zap.AddCaller(), zap.AddCallerSkip(0))
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("service", "ddnsd"))

	return logger, nil
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Level:  getenv("DDNSD_LOG_LEVEL", "info"),
		Format: getenv("DDNSD_LOG_FORMAT", "json"),
	}
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Component returns a zap field for the component name.
func Component(name string) zap.Field { return zap.String("component", name) }

// Net returns a zap field for the network protocol.
func Net(network string) zap.Field { return zap.String("net", network) }

// Port returns a zap field for the port number.
func Port(port int) zap.Field { return zap.Int("port", port) }

// Addr returns a zap field for a listen address.
func Addr(addr string) zap.Field { return zap.String("addr", addr) }

// Domain returns a zap field for a domain name.
func Domain(domain string) zap.Field { return zap.String("domain", domain) }

// Host returns a zap field for a managed host name.
func Host(name string) zap.Field { return zap.String("host", name) }

// RecordType returns a zap field for a DNS record type (A or AAAA).
func RecordType(t string) zap.Field { return zap.String("record_type", t) }

// RecordID returns a zap field for a provider-side record identifier.
func RecordID(id string) zap.Field { return zap.String("record_id", id) }

// IP returns a zap field for an IP address.
func IP(ip string) zap.Field { return zap.String("ip", ip) }

// TokenID returns a zap field for a capability token id.
func TokenID(id string) zap.Field { return zap.String("token_id", id) }

// Provider returns a zap field for the DNS provider name.
func Provider(name string) zap.Field { return zap.String("provider", name) }

// Outcome returns a zap field for a reconciliation outcome code.
func Outcome(code string) zap.Field { return zap.String("outcome", code) }

// RemoteIP returns a zap field for a remote IP address.
func RemoteIP(ip string) zap.Field { return zap.String("remote_ip", ip) }

// Method returns a zap field for an HTTP method.
func Method(method string) zap.Field { return zap.String("method", method) }

// Path returns a zap field for a URL path.
func Path(path string) zap.Field { return zap.String("path", path) }

// Status returns a zap field for an HTTP status code.
func Status(code int) zap.Field { return zap.Int("status", code) }

// TLSMode returns a zap field for TLS mode.
func TLSMode(mode string) zap.Field { return zap.String("tls_mode", mode) }
