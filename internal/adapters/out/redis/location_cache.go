// Package redis implements the hot location tier on Redis through rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"

	"github.com/redis/rueidis"
)

// keyPrefix is the prefix of the per-courier hash. Pattern: location:{courier_id}
const keyPrefix = "location"

// Hash fields.
const (
	fieldLat        = "latitude"
	fieldLon        = "longitude"
	fieldAccuracy   = "accuracy"
	fieldSpeed      = "speed"
	fieldHeading    = "heading"
	fieldRecordedAt = "recorded_at"
	fieldSuspicious = "suspicious"
)

// setIfNewer writes the hash only when the stored report is not newer. ts is the
// recorded time in microseconds, which a Lua number holds exactly.
//
// KEYS[1] hash key, ARGV[1] ts, ARGV[2] ttl seconds, ARGV[3..] field/value pairs.
var setIfNewer = rueidis.NewLuaScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'ts', ARGV[1], unpack(ARGV, 3))
redis.call('EXPIRE', KEYS[1], ARGV[2])
return 1
`)

// LocationCache implements ports.LocationCache.
type LocationCache struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewLocationCache creates the cache. A zero ttl selects geolocation.HotTTL.
func NewLocationCache(client rueidis.Client, ttl time.Duration) *LocationCache {
	if ttl <= 0 {
		ttl = geolocation.HotTTL
	}
	return &LocationCache{client: client, ttl: ttl}
}

func locationKey(courierID kernel.UUID) string {
	return keyPrefix + ":" + courierID.String()
}

func (c *LocationCache) Get(ctx context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	fields, err := c.client.Do(ctx, c.client.B().Hgetall().Key(locationKey(courierID)).Build()).AsStrMap()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return geolocation.Snapshot{}, false, nil
		}
		return geolocation.Snapshot{}, false, fmt.Errorf("failed to read location: %w", err)
	}
	if len(fields) == 0 {
		return geolocation.Snapshot{}, false, nil
	}

	snapshot, err := decode(courierID, fields)
	if err != nil {
		return geolocation.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// GetMany pipelines one HGETALL per courier.
func (c *LocationCache) GetMany(ctx context.Context, courierIDs []kernel.UUID) (map[kernel.UUID]geolocation.Snapshot, error) {
	result := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	if len(courierIDs) == 0 {
		return result, nil
	}

	cmds := make(rueidis.Commands, 0, len(courierIDs))
	for _, id := range courierIDs {
		cmds = append(cmds, c.client.B().Hgetall().Key(locationKey(id)).Build())
	}

	for i, resp := range c.client.DoMulti(ctx, cmds...) {
		fields, err := resp.AsStrMap()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read locations: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		snapshot, err := decode(courierIDs[i], fields)
		if err != nil {
			return nil, err
		}
		result[courierIDs[i]] = snapshot
	}
	return result, nil
}

func (c *LocationCache) SetIfNewer(ctx context.Context, snapshot geolocation.Snapshot) (bool, error) {
	args := []string{
		strconv.FormatInt(snapshot.RecordedAt().UnixMicro(), 10),
		strconv.FormatInt(int64(c.ttl/time.Second), 10),
	}
	args = append(args, encode(snapshot)...)

	written, err := setIfNewer.Exec(ctx, c.client, []string{locationKey(snapshot.CourierID())}, args).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to write location: %w", err)
	}
	return written == 1, nil
}

func encode(s geolocation.Snapshot) []string {
	fields := []string{
		fieldLat, formatFloat(s.Point().Lat()),
		fieldLon, formatFloat(s.Point().Lon()),
		fieldAccuracy, formatFloat(s.AccuracyM()),
		fieldRecordedAt, s.RecordedAt().UTC().Format(time.RFC3339Nano),
		fieldSuspicious, strconv.FormatBool(s.Suspicious()),
	}
	if v := s.SpeedKmh(); v != nil {
		fields = append(fields, fieldSpeed, formatFloat(*v))
	}
	if v := s.HeadingDeg(); v != nil {
		fields = append(fields, fieldHeading, formatFloat(*v))
	}
	return fields
}

func decode(courierID kernel.UUID, fields map[string]string) (geolocation.Snapshot, error) {
	lat, latErr := strconv.ParseFloat(fields[fieldLat], 64)
	lon, lonErr := strconv.ParseFloat(fields[fieldLon], 64)
	accuracy, accuracyErr := strconv.ParseFloat(fields[fieldAccuracy], 64)
	recordedAt, recordedErr := time.Parse(time.RFC3339Nano, fields[fieldRecordedAt])
	speed, speedErr := optionalFloat(fields, fieldSpeed)
	heading, headingErr := optionalFloat(fields, fieldHeading)
	if err := errors.Join(latErr, lonErr, accuracyErr, recordedErr, speedErr, headingErr); err != nil {
		return geolocation.Snapshot{}, fmt.Errorf("corrupt cached location of %s: %w", courierID, err)
	}

	point, err := kernel.NewCoordinates(lat, lon)
	if err != nil {
		return geolocation.Snapshot{}, fmt.Errorf("corrupt cached location of %s: %w", courierID, err)
	}
	snapshot, err := geolocation.NewSnapshot(courierID, point, recordedAt, accuracy, speed, heading)
	if err != nil {
		return geolocation.Snapshot{}, fmt.Errorf("corrupt cached location of %s: %w", courierID, err)
	}
	return snapshot.WithSuspicious(fields[fieldSuspicious] == "true"), nil
}

func optionalFloat(fields map[string]string, name string) (*float64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
