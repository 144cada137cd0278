package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.CredentialSource = (*LoggingCredentialSource)(nil)

// LoggingCredentialSource wraps a CredentialSource with logging.
type LoggingCredentialSource struct {
	next   harvest.CredentialSource
	logger *slog.Logger
}

// NewLoggingCredentialSource creates a new LoggingCredentialSource.
func NewLoggingCredentialSource(next harvest.CredentialSource, logger *slog.Logger) *LoggingCredentialSource {
	return &LoggingCredentialSource{next: next, logger: logger}
}

// Refresh delegates to the wrapped source and logs how many cookies it
// returned. Cookie values are never logged.
func (s *LoggingCredentialSource) Refresh(ctx context.Context, baseURL string) (cookies map[string]string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("credential refresh",
			"url", baseURL,
			"cookies", len(cookies),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Refresh(ctx, baseURL)
}
