package jobs

import (
	"context"
	"log/slog"
	"time"

	"courier-dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// RelayMetrics receives the results of OutboxRelayJob.
type RelayMetrics interface {
	OutboxRelayed(published int, failed bool)
	OutboxPending(pending int64)
}

// OutboxRelayJob drains the outbox to the event bus. Runs never overlap, which keeps
// publication in seq order.
type OutboxRelayJob struct {
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	batch     int
	timeout   time.Duration
	metrics   RelayMetrics
	cron      *cron.Cron
	spec      string
	logger    *slog.Logger
}

// NewOutboxRelayJob creates the job. spec is a cron expression with seconds.
func NewOutboxRelayJob(
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	spec string,
	batch int,
	metrics RelayMetrics,
	logger *slog.Logger,
) *OutboxRelayJob {
	return &OutboxRelayJob{
		outbox:    outbox,
		publisher: publisher,
		batch:     batch,
		timeout:   30 * time.Second,
		metrics:   metrics,
		cron:      newCron(),
		spec:      spec,
		logger:    logger.With("component", "outbox_relay_job"),
	}
}

// Start schedules the job.
func (j *OutboxRelayJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("Outbox relay job started", "schedule", j.spec, "batch", j.batch)
	return nil
}

// Stop waits for a running pass to finish.
func (j *OutboxRelayJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Outbox relay job stopped")
}

// RunOnce relays one batch. A publish error leaves the failed message and everything
// after it for the next run.
func (j *OutboxRelayJob) RunOnce(ctx context.Context) (int, error) {
	published, err := j.outbox.Relay(ctx, j.batch, j.publisher.Publish)
	if err != nil {
		j.logger.ErrorContext(ctx, "Outbox relay stopped", "published", published, "error", err)
	} else if published > 0 {
		j.logger.DebugContext(ctx, "Outbox relayed", "published", published)
	}

	if j.metrics != nil {
		j.metrics.OutboxRelayed(published, err != nil)
		if pending, pendingErr := j.outbox.Pending(ctx); pendingErr == nil {
			j.metrics.OutboxPending(pending)
		}
	}
	return published, err
}
