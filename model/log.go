package model

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a context carrying a correlation id used in log lines
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// Correlation returns the correlation id of ctx, or empty string
func Correlation(ctx context.Context) string {
	id, _ := ctx.Value(corrKey).(string)
	return id
}

// NewLogger returns a new logger, tagged with the correlation id if ctx has one
func NewLogger(ctx context.Context) (logger zerolog.Logger) {
	if id := Correlation(ctx); id != "" {
		logger = log.With().Str("corr", id).Logger()
		return
	}
	logger = log.With().Logger()
	return
}
