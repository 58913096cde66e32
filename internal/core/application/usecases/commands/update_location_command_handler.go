package commands

import (
	"context"
	"log/slog"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/pkg/errs"
)

// LocationRecorder is the write side of the geolocation store.
type LocationRecorder interface {
	Record(ctx context.Context, snapshot geolocation.Snapshot) (geostore.RecordResult, error)
}

// UpdateLocationCommandHandler stores courier positions. Reports of unknown couriers are
// rejected; archived couriers may still report.
type UpdateLocationCommandHandler struct {
	uowFactory CourierUoWFactory
	recorder   LocationRecorder
	logger     *slog.Logger
}

func NewUpdateLocationCommandHandler(
	uowFactory CourierUoWFactory,
	recorder LocationRecorder,
	logger *slog.Logger,
) UpdateLocationCommandHandler {
	return UpdateLocationCommandHandler{
		uowFactory: uowFactory,
		recorder:   recorder,
		logger:     logger.With("component", "update_location"),
	}
}

func (h UpdateLocationCommandHandler) Handle(
	ctx context.Context,
	command UpdateLocationCommand,
) (geostore.RecordResult, error) {
	if err := command.Validate(); err != nil {
		return geostore.RecordResult{}, err
	}
	snapshot := command.Snapshot()

	exists, err := h.uowFactory.Create().CourierRepository().Exists(ctx, snapshot.CourierID())
	if err != nil {
		return geostore.RecordResult{}, err
	}
	if !exists {
		return geostore.RecordResult{}, errs.NewObjectNotFoundError("courier", snapshot.CourierID())
	}

	result, err := h.recorder.Record(ctx, snapshot)
	if err != nil {
		return geostore.RecordResult{}, err
	}

	h.logger.DebugContext(ctx, "location recorded",
		"courier_id", snapshot.CourierID().String(),
		"recorded_at", snapshot.RecordedAt(),
		"suspicious", result.Snapshot.Suspicious(),
		"duplicate", result.Duplicate,
	)
	return result, nil
}
