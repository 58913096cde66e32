package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ListPackagesParams defines parameters for ListPackages.
type ListPackagesParams struct {
	Status    *string             `form:"status,omitempty" json:"status,omitempty"`
	Zone      *string             `form:"zone,omitempty" json:"zone,omitempty"`
	CourierId *openapi_types.UUID `form:"courier_id,omitempty" json:"courier_id,omitempty"`
	Limit     *int                `form:"limit,omitempty" json:"limit,omitempty"`
	Offset    *int                `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListCouriersParams defines parameters for ListCouriers.
type ListCouriersParams struct {
	Status        *string `form:"status,omitempty" json:"status,omitempty"`
	Zone          *string `form:"zone,omitempty" json:"zone,omitempty"`
	Transport     *string `form:"transport,omitempty" json:"transport,omitempty"`
	AvailableOnly *bool   `form:"available_only,omitempty" json:"available_only,omitempty"`
}

// GetCourierParams defines parameters for GetCourier.
type GetCourierParams struct {
	IncludeLocation *bool `form:"include_location,omitempty" json:"include_location,omitempty"`
}

// GetCourierLocationHistoryParams defines parameters for GetCourierLocationHistory.
type GetCourierLocationHistoryParams struct {
	From   time.Time `form:"from" json:"from"`
	To     time.Time `form:"to" json:"to"`
	Limit  *int      `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int      `form:"offset,omitempty" json:"offset,omitempty"`
}

// GetCourierLocationsParams defines parameters for GetCourierLocations.
type GetCourierLocationsParams struct {
	CourierId []openapi_types.UUID `form:"courier_id" json:"courier_id"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /api/v1/packages)
	AcceptOrder(ctx echo.Context) error
	// (GET /api/v1/packages)
	ListPackages(ctx echo.Context, params ListPackagesParams) error
	// (GET /api/v1/packages/{id})
	GetPackage(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/packages/{id}/assign)
	AssignPackage(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/packages/{id}/pickup)
	PickUpPackage(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/packages/{id}/deliver)
	CompletePackage(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/packages/{id}/cancel)
	CancelPackage(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/packages/{id}/revoke)
	RevokeAssignment(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/couriers)
	RegisterCourier(ctx echo.Context) error
	// (GET /api/v1/couriers)
	ListCouriers(ctx echo.Context, params ListCouriersParams) error
	// (GET /api/v1/couriers/{id})
	GetCourier(ctx echo.Context, id openapi_types.UUID, params GetCourierParams) error
	// (POST /api/v1/couriers/{id}/status)
	ChangeCourierStatus(ctx echo.Context, id openapi_types.UUID) error
	// (PUT /api/v1/couriers/{id}/contact)
	UpdateCourierContact(ctx echo.Context, id openapi_types.UUID) error
	// (PUT /api/v1/couriers/{id}/transport)
	ChangeCourierTransport(ctx echo.Context, id openapi_types.UUID) error
	// (PUT /api/v1/couriers/{id}/schedule)
	UpdateCourierSchedule(ctx echo.Context, id openapi_types.UUID) error
	// (POST /api/v1/couriers/{id}/location)
	ReportLocation(ctx echo.Context, id openapi_types.UUID) error
	// (GET /api/v1/couriers/{id}/location)
	GetCourierLocation(ctx echo.Context, id openapi_types.UUID) error
	// (GET /api/v1/couriers/{id}/location/history)
	GetCourierLocationHistory(ctx echo.Context, id openapi_types.UUID, params GetCourierLocationHistoryParams) error
	// (POST /api/v1/couriers/{id}/geofence-check)
	CheckGeofence(ctx echo.Context, id openapi_types.UUID) error
	// (GET /api/v1/locations)
	GetCourierLocations(ctx echo.Context, params GetCourierLocationsParams) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func bindID(ctx echo.Context) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return id, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
	}
	return id, nil
}

func bindQuery(ctx echo.Context, name string, required, explode bool, dest any) error {
	err := runtime.BindQueryParameter("form", explode, required, name, ctx.QueryParams(), dest)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return nil
}

// withID binds the path id and calls the operation.
func (w *ServerInterfaceWrapper) withID(op func(echo.Context, openapi_types.UUID) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := bindID(ctx)
		if err != nil {
			return err
		}
		return op(ctx, id)
	}
}

// ListPackages converts echo context to params.
func (w *ServerInterfaceWrapper) ListPackages(ctx echo.Context) error {
	var params ListPackagesParams
	for _, p := range []struct {
		name string
		dest any
	}{
		{"status", &params.Status},
		{"zone", &params.Zone},
		{"courier_id", &params.CourierId},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	} {
		if err := bindQuery(ctx, p.name, false, true, p.dest); err != nil {
			return err
		}
	}
	return w.Handler.ListPackages(ctx, params)
}

// ListCouriers converts echo context to params.
func (w *ServerInterfaceWrapper) ListCouriers(ctx echo.Context) error {
	var params ListCouriersParams
	for _, p := range []struct {
		name string
		dest any
	}{
		{"status", &params.Status},
		{"zone", &params.Zone},
		{"transport", &params.Transport},
		{"available_only", &params.AvailableOnly},
	} {
		if err := bindQuery(ctx, p.name, false, true, p.dest); err != nil {
			return err
		}
	}
	return w.Handler.ListCouriers(ctx, params)
}

// GetCourier converts echo context to params.
func (w *ServerInterfaceWrapper) GetCourier(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	var params GetCourierParams
	if err = bindQuery(ctx, "include_location", false, true, &params.IncludeLocation); err != nil {
		return err
	}
	return w.Handler.GetCourier(ctx, id, params)
}

// GetCourierLocationHistory converts echo context to params.
func (w *ServerInterfaceWrapper) GetCourierLocationHistory(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	var params GetCourierLocationHistoryParams
	if err = bindQuery(ctx, "from", true, true, &params.From); err != nil {
		return err
	}
	if err = bindQuery(ctx, "to", true, true, &params.To); err != nil {
		return err
	}
	if err = bindQuery(ctx, "limit", false, true, &params.Limit); err != nil {
		return err
	}
	if err = bindQuery(ctx, "offset", false, true, &params.Offset); err != nil {
		return err
	}
	return w.Handler.GetCourierLocationHistory(ctx, id, params)
}

// GetCourierLocations converts echo context to params.
func (w *ServerInterfaceWrapper) GetCourierLocations(ctx echo.Context) error {
	var params GetCourierLocationsParams
	if err := bindQuery(ctx, "courier_id", true, true, &params.CourierId); err != nil {
		return err
	}
	return w.Handler.GetCourierLocations(ctx, params)
}

// EchoRouter is the subset of echo.Echo and echo.Group used for registration.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}

// RegisterHandlersWithBaseURL registers handlers, and prepends BaseURL to the paths, so
// that the paths can be served under a prefix.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	w := ServerInterfaceWrapper{Handler: si}

	router.POST(baseURL+"/api/v1/packages", si.AcceptOrder)
	router.GET(baseURL+"/api/v1/packages", w.ListPackages)
	router.GET(baseURL+"/api/v1/packages/:id", w.withID(si.GetPackage))
	router.POST(baseURL+"/api/v1/packages/:id/assign", w.withID(si.AssignPackage))
	router.POST(baseURL+"/api/v1/packages/:id/pickup", w.withID(si.PickUpPackage))
	router.POST(baseURL+"/api/v1/packages/:id/deliver", w.withID(si.CompletePackage))
	router.POST(baseURL+"/api/v1/packages/:id/cancel", w.withID(si.CancelPackage))
	router.POST(baseURL+"/api/v1/packages/:id/revoke", w.withID(si.RevokeAssignment))

	router.POST(baseURL+"/api/v1/couriers", si.RegisterCourier)
	router.GET(baseURL+"/api/v1/couriers", w.ListCouriers)
	router.GET(baseURL+"/api/v1/couriers/:id", w.GetCourier)
	router.POST(baseURL+"/api/v1/couriers/:id/status", w.withID(si.ChangeCourierStatus))
	router.PUT(baseURL+"/api/v1/couriers/:id/contact", w.withID(si.UpdateCourierContact))
	router.PUT(baseURL+"/api/v1/couriers/:id/transport", w.withID(si.ChangeCourierTransport))
	router.PUT(baseURL+"/api/v1/couriers/:id/schedule", w.withID(si.UpdateCourierSchedule))
	router.POST(baseURL+"/api/v1/couriers/:id/location", w.withID(si.ReportLocation))
	router.GET(baseURL+"/api/v1/couriers/:id/location", w.withID(si.GetCourierLocation))
	router.GET(baseURL+"/api/v1/couriers/:id/location/history", w.GetCourierLocationHistory)
	router.POST(baseURL+"/api/v1/couriers/:id/geofence-check", w.withID(si.CheckGeofence))

	router.GET(baseURL+"/api/v1/locations", w.GetCourierLocations)
}
