//go:build integration

package queries_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "courier-dispatch/internal/adapters/out/postgres"
	"courier-dispatch/internal/core/application/usecases/queries"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type SQLQueryHandlersTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

func (suite *SQLQueryHandlersTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(postgres_adapter.AutoMigrate(db))
	suite.db = db
	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

func (suite *SQLQueryHandlersTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE packages, couriers, outbox").Error)
}

func (suite *SQLQueryHandlersTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *SQLQueryHandlersTestSuite) save(couriers []*courier.Courier, packages []*parcel.Package) {
	ctx := context.Background()
	uow := suite.factory.Create()
	suite.Require().NoError(uow.Begin(ctx))
	for _, c := range couriers {
		suite.Require().NoError(uow.CourierRepository().Add(ctx, c))
	}
	for _, p := range packages {
		suite.Require().NoError(uow.PackageRepository().Add(ctx, p))
	}
	suite.Require().NoError(uow.Commit(ctx))
}

func (suite *SQLQueryHandlersTestSuite) newCourier(name, zone string, transport courier.TransportType) *courier.Courier {
	contact, err := courier.NewContact("+4915112345678", "c@example.com", "")
	suite.Require().NoError(err)
	c, err := courier.NewCourier(kernel.NewUUID(), name, contact, transport, 5, zone, courier.AlwaysOn(), now)
	suite.Require().NoError(err)
	suite.Require().NoError(c.Activate(now))
	return c
}

func (suite *SQLQueryHandlersTestSuite) newPackage(priority int, acceptedAt time.Time) *parcel.Package {
	pickup, err := kernel.NewLocationFromLatLon(52.52, 13.405, "Alexanderplatz 1")
	suite.Require().NoError(err)
	delivery, err := kernel.NewLocationFromLatLon(52.53, 13.415, "")
	suite.Require().NoError(err)
	p, err := parcel.NewPackage(kernel.NewUUID(), parcel.Details{
		OrderID:    kernel.NewUUID(),
		CustomerID: kernel.NewUUID(),
		Pickup:     pickup,
		Delivery:   delivery,
		Zone:       "berlin",
		WeightKg:   1.5,
		Priority:   priority,
	}, acceptedAt)
	suite.Require().NoError(err)
	_, err = p.Transition(parcel.StatusInPool, parcel.TransitionContext{Now: acceptedAt})
	suite.Require().NoError(err)
	return p
}

func (suite *SQLQueryHandlersTestSuite) Test_GetPackage() {
	ctx := context.Background()
	p := suite.newPackage(2, now)
	suite.save(nil, []*parcel.Package{p})
	handler := queries.NewGetPackageQueryHandler(suite.db)

	query, err := queries.NewGetPackageQuery(p.ID())
	suite.Require().NoError(err)
	view, err := handler.Handle(ctx, query)

	suite.Require().NoError(err)
	suite.True(view.ID.IsEqual(p.ID()))
	suite.Equal(parcel.StatusInPool, view.Status)
	suite.Equal("Alexanderplatz 1", view.Pickup.Address())
	suite.Nil(view.CourierID)

	query, err = queries.NewGetPackageQuery(kernel.NewUUID())
	suite.Require().NoError(err)
	_, err = handler.Handle(ctx, query)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *SQLQueryHandlersTestSuite) Test_GetPackagePool() {
	ctx := context.Background()
	late := suite.newPackage(1, now.Add(time.Minute))
	early := suite.newPackage(1, now)
	relaxed := suite.newPackage(5, now.Add(-time.Hour))
	suite.save(nil, []*parcel.Package{late, early, relaxed})
	handler := queries.NewGetPackagePoolQueryHandler(suite.db)

	status := parcel.StatusInPool
	query, err := queries.NewGetPackagePoolQuery(queries.PackageFilter{Status: &status, Zone: "berlin", Limit: 2})
	suite.Require().NoError(err)
	page, err := handler.Handle(ctx, query)

	suite.Require().NoError(err)
	suite.EqualValues(3, page.TotalCount)
	suite.Require().Len(page.Packages, 2)
	suite.True(page.Packages[0].ID.IsEqual(early.ID()))
	suite.True(page.Packages[1].ID.IsEqual(late.ID()))

	query, err = queries.NewGetPackagePoolQuery(queries.PackageFilter{Zone: "hamburg"})
	suite.Require().NoError(err)
	page, err = handler.Handle(ctx, query)
	suite.Require().NoError(err)
	suite.Zero(page.TotalCount)
	suite.Empty(page.Packages)
}

func (suite *SQLQueryHandlersTestSuite) Test_Couriers() {
	ctx := context.Background()
	berlin := suite.newCourier("Berta", "berlin", courier.TransportBicycle)
	anywhere := suite.newCourier("Anton", courier.WildcardZone, courier.TransportCar)
	hamburg := suite.newCourier("Hanna", "hamburg", courier.TransportBicycle)
	full := suite.newCourier("Fritz", "berlin", courier.TransportFoot)
	suite.Require().NoError(full.IncrementLoad(now))
	suite.save([]*courier.Courier{berlin, anywhere, hamburg, full}, nil)

	single := queries.NewGetCourierQueryHandler(suite.db, nil)
	query, err := queries.NewGetCourierQuery(berlin.ID(), false)
	suite.Require().NoError(err)
	view, err := single.Handle(ctx, query)
	suite.Require().NoError(err)
	suite.Equal("Berta", view.Name)
	suite.Equal(courier.StatusFree, view.Status)
	suite.Equal([]int{1, 2, 3, 4, 5, 6, 7}, view.WorkDays)
	suite.Nil(view.Location)

	pool := queries.NewGetCourierPoolQueryHandler(suite.db)
	poolQuery, err := queries.NewGetCourierPoolQuery(queries.CourierFilter{Zone: "berlin", AvailableOnly: true})
	suite.Require().NoError(err)
	views, err := pool.Handle(ctx, poolQuery)
	suite.Require().NoError(err)
	suite.Require().Len(views, 2)
	suite.Equal("Anton", views[0].Name)
	suite.Equal("Berta", views[1].Name)

	bicycle := courier.TransportBicycle
	poolQuery, err = queries.NewGetCourierPoolQuery(queries.CourierFilter{Transport: &bicycle})
	suite.Require().NoError(err)
	views, err = pool.Handle(ctx, poolQuery)
	suite.Require().NoError(err)
	suite.Len(views, 2)
}

func TestSQLQueryHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(SQLQueryHandlersTestSuite))
}
