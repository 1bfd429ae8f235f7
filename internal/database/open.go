package database

import (
	"context"

	"heritageblade/internal/config"
	"heritageblade/internal/database/postgres"
	"heritageblade/internal/domain"

	"github.com/rs/zerolog"
)

// Opener returns the OpenFunc for the configured backend.
func Opener(cfg config.DatabaseConfig, logger *zerolog.Logger) OpenFunc {
	return func(ctx context.Context) (domain.Store, error) {
		if cfg.IsPostgres() {
			store, err := postgres.Open(ctx, cfg.URL, cfg.MaxConnections)
			if err != nil {
				return nil, err
			}
			logger.Info().Msg("postgres store connected")
			return store, nil
		}
		return NewDB(cfg.SQLitePath(), logger)
	}
}
