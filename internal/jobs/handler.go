package jobs

import (
	"context"
	"fmt"

	"resident/internal/accounts"
	"resident/internal/queue"
	logx "resident/pkg/logx"
)

// AccountHandler resolves the job's account through the directory and logs
// the job. A job naming an unknown account is an error.
func AccountHandler(dir accounts.Directory, log logx.Logger) Handler {
	return func(ctx context.Context, job queue.Job) error {
		fields := []logx.Field{
			logx.String("job", job.ID.String()),
			logx.String("batch", job.Batch),
			logx.Time("scheduled", job.Now),
		}
		if job.Account != nil && dir != nil {
			a, ok, err := dir.Get(ctx, *job.Account)
			if err != nil {
				return fmt.Errorf("lookup account %s: %w", job.Account, err)
			}
			if !ok {
				return fmt.Errorf("account %s not found", job.Account)
			}
			fields = append(fields, logx.String("account", a.ID.String()), logx.String("content", a.Content))
		}
		log.Info("job processed", fields...)
		return nil
	}
}
