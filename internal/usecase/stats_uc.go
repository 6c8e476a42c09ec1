// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"chopshop/internal/domain/ports/adapter"
	"chopshop/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Overview pairs the backend's public counters with the size of the local
// archive.
type Overview struct {
	TotalCreations int64
	TotalUsers     int64
	ArchivedJobs   int
}

type StatsUseCase interface {
	Overview(ctx context.Context) (*Overview, error)
}

type statsUC struct {
	gw   adapter.BackendGateway
	hist repository.HistoryStore
	log  *zerolog.Logger
}

func NewStatsUseCase(gw adapter.BackendGateway, hist repository.HistoryStore, logger *zerolog.Logger) *statsUC {
	statsLog := logger.With().Str("component", "StatsUseCase").Logger()
	return &statsUC{gw: gw, hist: hist, log: &statsLog}
}

func (s *statsUC) Overview(ctx context.Context) (*Overview, error) {
	snap, err := s.gw.Stats(ctx)
	if err != nil {
		return nil, err
	}

	archived := 0
	if s.hist != nil {
		if n, err := s.hist.Count(ctx); err == nil {
			archived = n
		} else {
			s.log.Warn().Err(err).Msg("count archived jobs failed")
		}
	}

	return &Overview{
		TotalCreations: snap.TotalCreations,
		TotalUsers:     snap.TotalUsers,
		ArchivedJobs:   archived,
	}, nil
}
