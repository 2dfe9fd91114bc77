package refreshrun

import "context"

type Repository interface {
	UpsertRun(ctx context.Context, run Run) error
	ListRecent(ctx context.Context, limit int) ([]Run, error)
}
