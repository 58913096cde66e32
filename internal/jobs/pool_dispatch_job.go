package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/domain/services"

	"github.com/robfig/cron/v3"
)

// Pool dispatch results reported to DispatchMetrics.
const (
	ResultAssigned  = "assigned"
	ResultNoCourier = "no_courier"
	ResultSkipped   = "skipped"
	ResultError     = "error"
)

// Assigner reserves couriers for pooled packages.
type Assigner interface {
	Handle(ctx context.Context, command commands.AssignOrderCommand) (kernel.UUID, error)
}

// DispatchMetrics counts packages handled by PoolDispatchJob.
type DispatchMetrics interface {
	PoolDispatched(result string)
}

// PoolDispatchJob periodically runs automatic assignment for the packages waiting in the
// pool, most urgent first.
type PoolDispatchJob struct {
	packages commands.PackageUoWFactory
	assigner Assigner
	batch    int
	timeout  time.Duration
	metrics  DispatchMetrics
	cron     *cron.Cron
	spec     string
	logger   *slog.Logger
}

// NewPoolDispatchJob creates the job. spec is a cron expression with seconds; batch caps
// the packages handled per run.
func NewPoolDispatchJob(
	packages commands.PackageUoWFactory,
	assigner Assigner,
	spec string,
	batch int,
	metrics DispatchMetrics,
	logger *slog.Logger,
) *PoolDispatchJob {
	return &PoolDispatchJob{
		packages: packages,
		assigner: assigner,
		batch:    batch,
		timeout:  30 * time.Second,
		metrics:  metrics,
		cron:     newCron(),
		spec:     spec,
		logger:   logger.With("component", "pool_dispatch_job"),
	}
}

// Start schedules the job.
func (j *PoolDispatchJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.RunOnce(ctx)
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("Pool dispatch job started", "schedule", j.spec, "batch", j.batch)
	return nil
}

// Stop waits for a running pass to finish.
func (j *PoolDispatchJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("Pool dispatch job stopped")
}

// RunOnce tries every pooled package of one batch once and returns the number assigned.
func (j *PoolDispatchJob) RunOnce(ctx context.Context) int {
	pooled, err := j.packages.Create().PackageRepository().FindPooled(ctx, j.batch)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list pooled packages", "error", err)
		return 0
	}

	assigned := 0
	for _, p := range pooled {
		if ctx.Err() != nil {
			return assigned
		}

		result := j.assign(ctx, p)
		if j.metrics != nil {
			j.metrics.PoolDispatched(result)
		}
		if result == ResultAssigned {
			assigned++
		}
	}
	return assigned
}

func (j *PoolDispatchJob) assign(ctx context.Context, p *parcel.Package) string {
	cmd, err := commands.NewAssignOrderCommand(p.ID(), commands.AssignModeAuto, nil)
	if err != nil {
		j.logger.ErrorContext(ctx, "Invalid assignment command", "package_id", p.ID().String(), "error", err)
		return ResultError
	}

	courierID, err := j.assigner.Handle(ctx, cmd)
	switch {
	case err == nil:
		j.logger.DebugContext(ctx, "Package assigned",
			"package_id", p.ID().String(), "courier_id", courierID.String())
		return ResultAssigned
	case errors.Is(err, services.ErrNoCourierAvailable):
		return ResultNoCourier
	case errors.Is(err, parcel.ErrIllegalTransition):
		// left the pool between listing and assignment
		return ResultSkipped
	default:
		j.logger.ErrorContext(ctx, "Pool dispatch failed", "package_id", p.ID().String(), "error", err)
		return ResultError
	}
}
