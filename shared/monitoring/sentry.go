// Package monitoring initializes Sentry error reporting.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds Sentry configuration options
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	ServiceName string
}

// InitSentry initializes Sentry. An empty DSN disables reporting and is
// not an error.
func InitSentry(cfg SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "development"
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: environment,
		Release:     cfg.Release,
		ServerName:  cfg.ServiceName,
	})
}

// CaptureError reports an error with an operation tag.
func CaptureError(err error, operation string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		sentry.CaptureException(err)
	})
}

// Flush drains buffered events before shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
