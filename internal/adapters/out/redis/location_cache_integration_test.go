//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	redis_adapter "courier-dispatch/internal/adapters/out/redis"
	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/redis/rueidis"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

type LocationCacheTestSuite struct {
	suite.Suite
	container *redis.RedisContainer
	client    rueidis.Client
	cache     *redis_adapter.LocationCache
}

func (suite *LocationCacheTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := redis.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	host, err := container.Host(ctx)
	suite.Require().NoError(err)
	port, err := container.MappedPort(ctx, "6379")
	suite.Require().NoError(err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{fmt.Sprintf("%s:%s", host, port.Port())},
		DisableCache: true,
	})
	suite.Require().NoError(err)
	suite.client = client
	suite.cache = redis_adapter.NewLocationCache(client, 0)
}

func (suite *LocationCacheTestSuite) SetupTest() {
	ctx := context.Background()
	suite.Require().NoError(suite.client.Do(ctx, suite.client.B().Flushall().Build()).Error())
}

func (suite *LocationCacheTestSuite) TearDownSuite() {
	if suite.client != nil {
		suite.client.Close()
	}
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *LocationCacheTestSuite) snapshot(id kernel.UUID, lat float64, at time.Time, speed *float64) geolocation.Snapshot {
	s, err := geolocation.NewSnapshot(id, kernel.MustNewCoordinates(lat, 13.405), at, 7.5, speed, nil)
	suite.Require().NoError(err)
	return s
}

func (suite *LocationCacheTestSuite) Test_SetIfNewerKeepsTheNewestReport() {
	ctx := context.Background()
	id := kernel.NewUUID()
	speed := 18.0

	written, err := suite.cache.SetIfNewer(ctx, suite.snapshot(id, 52.52, now, &speed))
	suite.Require().NoError(err)
	suite.True(written)

	written, err = suite.cache.SetIfNewer(ctx, suite.snapshot(id, 52.60, now.Add(-time.Second), nil))
	suite.Require().NoError(err)
	suite.False(written)

	got, ok, err := suite.cache.Get(ctx, id)
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.InDelta(52.52, got.Point().Lat(), 1e-9)
	suite.Require().NotNil(got.SpeedKmh())
	suite.InDelta(18.0, *got.SpeedKmh(), 1e-9)
	suite.True(got.RecordedAt().Equal(now))

	written, err = suite.cache.SetIfNewer(ctx, suite.snapshot(id, 52.53, now.Add(time.Second), nil).WithSuspicious(true))
	suite.Require().NoError(err)
	suite.True(written)

	got, ok, err = suite.cache.Get(ctx, id)
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Nil(got.SpeedKmh())
	suite.True(got.Suspicious())

	ttl, err := suite.client.Do(ctx, suite.client.B().Ttl().Key("location:"+id.String()).Build()).AsInt64()
	suite.Require().NoError(err)
	suite.InDelta(geolocation.HotTTL.Seconds(), float64(ttl), 2)
}

func (suite *LocationCacheTestSuite) Test_GetManySkipsMisses() {
	ctx := context.Background()
	a, b, missing := kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID()
	for _, id := range []kernel.UUID{a, b} {
		_, err := suite.cache.SetIfNewer(ctx, suite.snapshot(id, 52.52, now, nil))
		suite.Require().NoError(err)
	}

	got, err := suite.cache.GetMany(ctx, []kernel.UUID{a, missing, b})

	suite.Require().NoError(err)
	suite.Len(got, 2)
	suite.Contains(got, a)
	suite.Contains(got, b)

	_, ok, err := suite.cache.Get(ctx, missing)
	suite.Require().NoError(err)
	suite.False(ok)
}

func TestLocationCacheTestSuite(t *testing.T) {
	suite.Run(t, new(LocationCacheTestSuite))
}
