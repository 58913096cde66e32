package http

import (
	"context"
	"net/http"

	"courier-dispatch/internal/core/application/geostore"
	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/application/usecases/queries"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Handler is implemented by command and query handlers that return a result.
type Handler[In, Out any] interface {
	Handle(ctx context.Context, in In) (Out, error)
}

// Executor is implemented by command handlers without a result.
type Executor[In any] interface {
	Handle(ctx context.Context, in In) error
}

// Handlers lists the use cases served over HTTP.
type Handlers struct {
	AcceptOrder          Handler[commands.AcceptOrderCommand, kernel.UUID]
	AssignOrder          Handler[commands.AssignOrderCommand, kernel.UUID]
	PickUpOrder          Executor[commands.PickUpOrderCommand]
	DeliverOrder         Executor[commands.DeliverOrderCommand]
	CancelOrder          Executor[commands.CancelOrderCommand]
	RevokeAssignment     Executor[commands.RevokeAssignmentCommand]
	RegisterCourier      Handler[commands.RegisterCourierCommand, kernel.UUID]
	ChangeCourierStatus  Executor[commands.ChangeCourierStatusCommand]
	UpdateCourierProfile Executor[commands.UpdateCourierProfileCommand]
	UpdateLocation       Handler[commands.UpdateLocationCommand, geostore.RecordResult]

	GetPackage         Handler[queries.GetPackageQuery, queries.PackageView]
	GetPackagePool     Handler[queries.GetPackagePoolQuery, queries.PackagePage]
	GetCourier         Handler[queries.GetCourierQuery, queries.CourierView]
	GetCourierPool     Handler[queries.GetCourierPoolQuery, []queries.CourierView]
	GetLocation        Handler[queries.GetLocationQuery, queries.LocationView]
	GetLocations       Handler[queries.GetLocationsQuery, []queries.LocationView]
	GetLocationHistory Handler[queries.GetLocationHistoryQuery, []queries.LocationView]
	CheckGeofence      Handler[queries.CheckGeofenceQuery, queries.GeofenceCheck]
}

// Server implements ServerInterface on top of the application handlers. Errors are
// returned to echo and rendered by the shared error handler.
type Server struct {
	h Handlers
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(handlers Handlers) *Server {
	return &Server{h: handlers}
}

func toID(id openapi_types.UUID) (kernel.UUID, error) {
	return kernel.UUIDFromBytes(id[:])
}

func bind[T any](ctx echo.Context) (T, error) {
	var body T
	if err := ctx.Bind(&body); err != nil {
		return body, err
	}
	return body, nil
}

// AcceptOrder handles POST /api/v1/packages.
func (s *Server) AcceptOrder(ctx echo.Context) error {
	body, err := bind[NewPackage](ctx)
	if err != nil {
		return err
	}
	details, err := body.details()
	if err != nil {
		return err
	}
	cmd, err := commands.NewAcceptOrderCommand(details)
	if err != nil {
		return err
	}

	id, err := s.h.AcceptOrder.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, Created{ID: id})
}

// ListPackages handles GET /api/v1/packages.
func (s *Server) ListPackages(ctx echo.Context, params ListPackagesParams) error {
	var filter queries.PackageFilter
	if params.Status != nil {
		status, err := parcel.ParseStatus(*params.Status)
		if err != nil {
			return err
		}
		filter.Status = &status
	}
	if params.Zone != nil {
		filter.Zone = *params.Zone
	}
	if params.CourierId != nil {
		courierID, err := toID(*params.CourierId)
		if err != nil {
			return err
		}
		filter.CourierID = &courierID
	}
	if params.Limit != nil {
		filter.Limit = *params.Limit
	}
	if params.Offset != nil {
		filter.Offset = *params.Offset
	}

	query, err := queries.NewGetPackagePoolQuery(filter)
	if err != nil {
		return err
	}
	page, err := s.h.GetPackagePool.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	resp := PackagePage{Packages: make([]Package, 0, len(page.Packages)), TotalCount: page.TotalCount}
	for _, v := range page.Packages {
		resp.Packages = append(resp.Packages, newPackage(v))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetPackage handles GET /api/v1/packages/{id}.
func (s *Server) GetPackage(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	query, err := queries.NewGetPackageQuery(packageID)
	if err != nil {
		return err
	}
	view, err := s.h.GetPackage.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newPackage(view))
}

// AssignPackage handles POST /api/v1/packages/{id}/assign.
func (s *Server) AssignPackage(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[AssignRequest](ctx)
	if err != nil {
		return err
	}
	mode, err := commands.ParseAssignMode(body.Mode)
	if err != nil {
		return err
	}
	cmd, err := commands.NewAssignOrderCommand(packageID, mode, body.CourierID)
	if err != nil {
		return err
	}

	courierID, err := s.h.AssignOrder.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, Assignment{PackageID: packageID, CourierID: courierID})
}

// PickUpPackage handles POST /api/v1/packages/{id}/pickup.
func (s *Server) PickUpPackage(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[PickUpRequest](ctx)
	if err != nil {
		return err
	}
	location, err := body.Location.location("location")
	if err != nil {
		return err
	}
	cmd, err := commands.NewPickUpOrderCommand(packageID, body.CourierID, location)
	if err != nil {
		return err
	}
	if err = s.h.PickUpOrder.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CompletePackage handles POST /api/v1/packages/{id}/deliver for both outcomes.
func (s *Server) CompletePackage(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[DeliverRequest](ctx)
	if err != nil {
		return err
	}

	var cmd commands.DeliverOrderCommand
	if body.Delivered {
		recipient, recipientErr := body.Recipient.recipient()
		if recipientErr != nil {
			return recipientErr
		}
		cmd, err = commands.NewDeliverOrderCommand(packageID, body.CourierID, recipient)
	} else {
		cmd, err = commands.NewFailedDeliveryCommand(packageID, body.CourierID, body.FailureReason)
	}
	if err != nil {
		return err
	}
	if err = s.h.DeliverOrder.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CancelPackage handles POST /api/v1/packages/{id}/cancel.
func (s *Server) CancelPackage(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[ReasonRequest](ctx)
	if err != nil {
		return err
	}
	cmd, err := commands.NewCancelOrderCommand(packageID, body.Reason)
	if err != nil {
		return err
	}
	if err = s.h.CancelOrder.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RevokeAssignment handles POST /api/v1/packages/{id}/revoke.
func (s *Server) RevokeAssignment(ctx echo.Context, id openapi_types.UUID) error {
	packageID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[ReasonRequest](ctx)
	if err != nil {
		return err
	}
	cmd, err := commands.NewRevokeAssignmentCommand(packageID, body.Reason)
	if err != nil {
		return err
	}
	if err = s.h.RevokeAssignment.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RegisterCourier handles POST /api/v1/couriers.
func (s *Server) RegisterCourier(ctx echo.Context) error {
	body, err := bind[NewCourier](ctx)
	if err != nil {
		return err
	}
	contact, err := body.Contact.contact()
	if err != nil {
		return err
	}
	transport, err := courier.ParseTransportType(body.Transport)
	if err != nil {
		return err
	}
	hours, err := body.Schedule.hours()
	if err != nil {
		return err
	}
	cmd, err := commands.NewRegisterCourierCommand(
		body.Name, contact, transport, body.Schedule.MaxDistanceKm, body.Schedule.WorkZone, hours,
	)
	if err != nil {
		return err
	}

	id, err := s.h.RegisterCourier.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, Created{ID: id})
}

// ListCouriers handles GET /api/v1/couriers.
func (s *Server) ListCouriers(ctx echo.Context, params ListCouriersParams) error {
	var filter queries.CourierFilter
	if params.Status != nil {
		status, err := courier.ParseStatus(*params.Status)
		if err != nil {
			return err
		}
		filter.Status = &status
	}
	if params.Zone != nil {
		filter.Zone = *params.Zone
	}
	if params.Transport != nil {
		transport, err := courier.ParseTransportType(*params.Transport)
		if err != nil {
			return err
		}
		filter.Transport = &transport
	}
	if params.AvailableOnly != nil {
		filter.AvailableOnly = *params.AvailableOnly
	}

	query, err := queries.NewGetCourierPoolQuery(filter)
	if err != nil {
		return err
	}
	views, err := s.h.GetCourierPool.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	resp := make([]Courier, 0, len(views))
	for _, v := range views {
		resp = append(resp, newCourier(v))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetCourier handles GET /api/v1/couriers/{id}.
func (s *Server) GetCourier(ctx echo.Context, id openapi_types.UUID, params GetCourierParams) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	query, err := queries.NewGetCourierQuery(courierID, params.IncludeLocation != nil && *params.IncludeLocation)
	if err != nil {
		return err
	}
	view, err := s.h.GetCourier.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourier(view))
}

// ChangeCourierStatus handles POST /api/v1/couriers/{id}/status.
func (s *Server) ChangeCourierStatus(ctx echo.Context, id openapi_types.UUID) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[StatusChange](ctx)
	if err != nil {
		return err
	}

	var cmd commands.ChangeCourierStatusCommand
	switch commands.StatusAction(body.Action) {
	case commands.StatusActionActivate:
		cmd, err = commands.NewActivateCourierCommand(courierID)
	case commands.StatusActionDeactivate:
		cmd, err = commands.NewDeactivateCourierCommand(courierID, body.Reason)
	case commands.StatusActionArchive:
		cmd, err = commands.NewArchiveCourierCommand(courierID, body.Reason)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status action "+body.Action)
	}
	if err != nil {
		return err
	}
	if err = s.h.ChangeCourierStatus.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// UpdateCourierContact handles PUT /api/v1/couriers/{id}/contact.
func (s *Server) UpdateCourierContact(ctx echo.Context, id openapi_types.UUID) error {
	return s.updateProfile(ctx, id, func(courierID kernel.UUID) (commands.UpdateCourierProfileCommand, error) {
		body, err := bind[Contact](ctx)
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		contact, err := body.contact()
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		return commands.NewUpdateCourierContactCommand(courierID, contact)
	})
}

// ChangeCourierTransport handles PUT /api/v1/couriers/{id}/transport.
func (s *Server) ChangeCourierTransport(ctx echo.Context, id openapi_types.UUID) error {
	return s.updateProfile(ctx, id, func(courierID kernel.UUID) (commands.UpdateCourierProfileCommand, error) {
		body, err := bind[TransportChange](ctx)
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		transport, err := courier.ParseTransportType(body.Transport)
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		return commands.NewChangeCourierTransportCommand(courierID, transport)
	})
}

// UpdateCourierSchedule handles PUT /api/v1/couriers/{id}/schedule.
func (s *Server) UpdateCourierSchedule(ctx echo.Context, id openapi_types.UUID) error {
	return s.updateProfile(ctx, id, func(courierID kernel.UUID) (commands.UpdateCourierProfileCommand, error) {
		body, err := bind[Schedule](ctx)
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		hours, err := body.hours()
		if err != nil {
			return commands.UpdateCourierProfileCommand{}, err
		}
		return commands.NewUpdateCourierScheduleCommand(courierID, hours, body.WorkZone, body.MaxDistanceKm)
	})
}

func (s *Server) updateProfile(
	ctx echo.Context,
	id openapi_types.UUID,
	build func(courierID kernel.UUID) (commands.UpdateCourierProfileCommand, error),
) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	cmd, err := build(courierID)
	if err != nil {
		return err
	}
	if err = s.h.UpdateCourierProfile.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ReportLocation handles POST /api/v1/couriers/{id}/location.
func (s *Server) ReportLocation(ctx echo.Context, id openapi_types.UUID) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[LocationReport](ctx)
	if err != nil {
		return err
	}
	cmd, err := commands.NewUpdateLocationCommand(
		courierID, body.Latitude, body.Longitude, body.Accuracy, body.Timestamp, body.Speed, body.Heading,
	)
	if err != nil {
		return err
	}

	result, err := s.h.UpdateLocation.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, newRecordedLocation(result))
}

// GetCourierLocation handles GET /api/v1/couriers/{id}/location.
func (s *Server) GetCourierLocation(ctx echo.Context, id openapi_types.UUID) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	query, err := queries.NewGetLocationQuery(courierID)
	if err != nil {
		return err
	}
	view, err := s.h.GetLocation.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourierLocation(view))
}

// GetCourierLocationHistory handles GET /api/v1/couriers/{id}/location/history.
func (s *Server) GetCourierLocationHistory(
	ctx echo.Context,
	id openapi_types.UUID,
	params GetCourierLocationHistoryParams,
) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	var limit, offset int
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Offset != nil {
		offset = *params.Offset
	}
	query, err := queries.NewGetLocationHistoryQuery(courierID, params.From, params.To, limit, offset)
	if err != nil {
		return err
	}
	views, err := s.h.GetLocationHistory.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourierLocations(views))
}

// CheckGeofence handles POST /api/v1/couriers/{id}/geofence-check.
func (s *Server) CheckGeofence(ctx echo.Context, id openapi_types.UUID) error {
	courierID, err := toID(id)
	if err != nil {
		return err
	}
	body, err := bind[Geofence](ctx)
	if err != nil {
		return err
	}
	geofence, err := body.geofence()
	if err != nil {
		return err
	}
	query, err := queries.NewCheckGeofenceQuery(courierID, geofence)
	if err != nil {
		return err
	}

	check, err := s.h.CheckGeofence.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GeofenceCheck{
		Inside:   check.Inside,
		Kind:     string(check.Kind),
		Location: newCourierLocation(check.Location),
	})
}

// GetCourierLocations handles GET /api/v1/locations.
func (s *Server) GetCourierLocations(ctx echo.Context, params GetCourierLocationsParams) error {
	ids := make([]kernel.UUID, 0, len(params.CourierId))
	for _, raw := range params.CourierId {
		id, err := toID(raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	query, err := queries.NewGetLocationsQuery(ids)
	if err != nil {
		return err
	}
	views, err := s.h.GetLocations.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newCourierLocations(views))
}
