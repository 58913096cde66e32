package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	httpapi "courier-dispatch/internal/adapters/in/http"
	"courier-dispatch/internal/adapters/in/kafka"
	"courier-dispatch/internal/adapters/in/ops"
	"courier-dispatch/internal/adapters/out/postgres"
	"courier-dispatch/internal/adapters/out/postgres/historyrepo"
	"courier-dispatch/internal/adapters/out/postgres/outboxrepo"
	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/application/usecases/queries"
	"courier-dispatch/internal/core/domain/services"
	"courier-dispatch/internal/jobs"
	"courier-dispatch/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// CompositionRoot holds the assembled application: the public API, the ops endpoints,
// the background jobs and the location consumer.
type CompositionRoot struct {
	Echo     *echo.Echo
	Ops      http.Handler
	Jobs     *jobs.JobManager
	Consumer *kafka.Consumer
}

// NewCompositionRoot wires the use cases onto the opened infrastructure.
func NewCompositionRoot(ctx context.Context, cfg Config, infra *Infrastructure, logger *slog.Logger) (*CompositionRoot, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	clock := cfg.Clock()

	history := historyrepo.New(infra.Pool)
	if err := history.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate location history: %w", err)
	}
	infra.Checks["location_history"] = func(ctx context.Context) error { return infra.Pool.Ping(ctx) }

	geo := geostore.New(infra.Cache, history, clock, geostore.Config{StalenessCap: cfg.StalenessCap}, m, logger)

	uow := postgres.NewGormUnitOfWorkFactory(infra.DB)
	both := commands.NewUoWFactory(uow)
	packages := commands.NewPackageUoWFactory(uow)
	couriers := commands.NewCourierUoWFactory(uow)

	assign := commands.NewAssignOrderCommandHandler(
		both, services.NewDispatcher(cfg.Freshness), geo, infra.Notifier, clock, m, logger)
	updateLocation := commands.NewUpdateLocationCommandHandler(couriers, geo, logger)

	server := httpapi.NewServer(httpapi.Handlers{
		AcceptOrder:          commands.NewAcceptOrderCommandHandler(packages, clock, logger),
		AssignOrder:          assign,
		PickUpOrder:          commands.NewPickUpOrderCommandHandler(packages, clock, m, logger),
		DeliverOrder:         commands.NewDeliverOrderCommandHandler(both, clock, m, logger),
		CancelOrder:          commands.NewCancelOrderCommandHandler(packages, clock, m, logger),
		RevokeAssignment:     commands.NewRevokeAssignmentCommandHandler(both, clock, m, logger),
		RegisterCourier:      commands.NewRegisterCourierCommandHandler(couriers, clock, logger),
		ChangeCourierStatus:  commands.NewChangeCourierStatusCommandHandler(couriers, clock, m, logger),
		UpdateCourierProfile: commands.NewUpdateCourierProfileCommandHandler(couriers, clock, m, logger),
		UpdateLocation:       updateLocation,
		GetPackage:           queries.NewGetPackageQueryHandler(infra.DB),
		GetPackagePool:       queries.NewGetPackagePoolQueryHandler(infra.DB),
		GetCourier:           queries.NewGetCourierQueryHandler(infra.DB, geo),
		GetCourierPool:       queries.NewGetCourierPoolQueryHandler(infra.DB),
		GetLocation:          queries.NewGetLocationQueryHandler(geo),
		GetLocations:         queries.NewGetLocationsQueryHandler(geo),
		GetLocationHistory:   queries.NewGetLocationHistoryQueryHandler(geo),
		CheckGeofence:        queries.NewCheckGeofenceQueryHandler(geo),
	})
	e, err := httpapi.NewRouter(server, m, logger)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	background := []jobs.Job{
		jobs.NewPoolDispatchJob(packages, assign, cfg.PoolDispatchSchedule, cfg.PoolDispatchBatch, m, logger),
	}
	if infra.Publisher != nil {
		outbox := outboxrepo.NewGormOutboxRepository(infra.DB, clock)
		background = append(background, jobs.NewOutboxRelayJob(
			outbox, infra.Publisher, cfg.OutboxRelaySchedule, cfg.OutboxRelayBatch, m, logger))
	}

	consumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers(), cfg.KafkaConsumerGroup, cfg.KafkaLocationTopic, updateLocation, logger)
	if err != nil {
		return nil, fmt.Errorf("create location consumer: %w", err)
	}

	return &CompositionRoot{
		Echo:     e,
		Ops:      ops.NewHandler(registry, infra.Checks, ops.Config{PprofUser: cfg.PprofUser, PprofPass: cfg.PprofPass}),
		Jobs:     jobs.NewJobManager(logger, background...),
		Consumer: consumer,
	}, nil
}
