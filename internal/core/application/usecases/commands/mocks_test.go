package commands_test

import (
	"context"

	"courier-dispatch/internal/core/application/usecases/commands"
	"courier-dispatch/internal/core/domain/model/courier"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/domain/model/parcel"
	"courier-dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockPackageRepository struct{ mock.Mock }

func (m *MockPackageRepository) Add(ctx context.Context, p *parcel.Package) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPackageRepository) Update(ctx context.Context, p *parcel.Package) error {
	return m.Called(ctx, p).Error(0)
}

// Get accepts either a *parcel.Package or a func() *parcel.Package, the latter giving a
// fresh aggregate per call.
func (m *MockPackageRepository) Get(ctx context.Context, id kernel.UUID) (*parcel.Package, error) {
	args := m.Called(ctx, id)
	switch v := args.Get(0).(type) {
	case func() *parcel.Package:
		return v(), args.Error(1)
	case *parcel.Package:
		return v, args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

func (m *MockPackageRepository) FindByOrderID(ctx context.Context, orderID kernel.UUID) (*parcel.Package, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*parcel.Package), args.Error(1)
}

func (m *MockPackageRepository) FindPooled(ctx context.Context, limit int) ([]*parcel.Package, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*parcel.Package), args.Error(1)
}

type MockCourierRepository struct{ mock.Mock }

func (m *MockCourierRepository) Add(ctx context.Context, c *courier.Courier) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCourierRepository) Update(ctx context.Context, c *courier.Courier) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCourierRepository) Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error) {
	args := m.Called(ctx, id)
	switch v := args.Get(0).(type) {
	case func() *courier.Courier:
		return v(), args.Error(1)
	case *courier.Courier:
		return v, args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

func (m *MockCourierRepository) Exists(ctx context.Context, id kernel.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCourierRepository) FindDispatchable(ctx context.Context, zone string) ([]*courier.Courier, error) {
	args := m.Called(ctx, zone)
	switch v := args.Get(0).(type) {
	case func() []*courier.Courier:
		return v(), args.Error(1)
	case []*courier.Courier:
		return v, args.Error(1)
	default:
		return nil, args.Error(1)
	}
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *MockUoW) Commit(ctx context.Context) error   { return m.Called(ctx).Error(0) }
func (m *MockUoW) Rollback(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockUoW) PackageRepository() ports.PackageRepository {
	return m.Called().Get(0).(ports.PackageRepository)
}

func (m *MockUoW) CourierRepository() ports.CourierRepository {
	return m.Called().Get(0).(ports.CourierRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	return m.Called().Get(0).(commands.UoW)
}

type MockLocationReader struct{ mock.Mock }

func (m *MockLocationReader) Current(ctx context.Context, id kernel.UUID) (geolocation.Snapshot, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(geolocation.Snapshot), args.Bool(1), args.Error(2)
}

func (m *MockLocationReader) CurrentMany(
	ctx context.Context,
	ids []kernel.UUID,
) (map[kernel.UUID]geolocation.Snapshot, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[kernel.UUID]geolocation.Snapshot), args.Error(1)
}

// recordingMetrics counts dispatch outcomes and retries.
type recordingMetrics struct {
	ports.NopMetrics
	outcomes []string
	retries  int
}

func (m *recordingMetrics) DispatchOutcome(mode, outcome string) {
	m.outcomes = append(m.outcomes, mode+":"+outcome)
}

func (m *recordingMetrics) ConflictRetried(string) { m.retries++ }
