package repository

import (
	"context"

	"chopshop/internal/domain/model"
)

// HistoryStore archives terminal jobs locally. AppendTerminal is idempotent
// per job ID so a job lands in history at most once.
type HistoryStore interface {
	AppendTerminal(ctx context.Context, job *model.Job) error
	List(ctx context.Context, limit int) ([]*model.Job, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
