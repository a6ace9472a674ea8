// Package middleware provides logging and OpenTelemetry decorators for the
// insights service.
package middleware

import (
	"context"
	"time"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
)

// Logger describes a logging interface allowing to plug any logger that matches it.
// zap's SugaredLogger satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// LoggingMiddleware logs every Generate call with its duration and outcome.
type LoggingMiddleware struct {
	next   insights.Service
	logger Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next insights.Service, logger Logger) insights.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// Logging adapts NewLoggingMiddleware to insights.Middleware.
func Logging(logger Logger) insights.Middleware {
	return func(next insights.Service) insights.Service { return NewLoggingMiddleware(next, logger) }
}

// Generate logs the time it takes to execute the next service.
func (mw LoggingMiddleware) Generate(ctx context.Context, up insights.Upload) (*analysis.Insights, error) {
	begin := time.Now()
	in, err := mw.next.Generate(ctx, up)
	if err != nil {
		mw.logger.Errorf("generate %q (%d bytes) failed after %s: %v", up.Name, len(up.Data), time.Since(begin), err)
		return nil, err
	}
	mw.logger.Infof("generate %q (%d bytes) took %s: %d numeric columns", up.Name, len(up.Data), time.Since(begin), in.Trends.Len())
	return in, nil
}
