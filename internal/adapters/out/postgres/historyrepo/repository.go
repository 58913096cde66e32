// Package historyrepo is the cold tier of the geolocation store: an append-only table of
// location reports kept in PostgreSQL and accessed through pgx. The table is written at
// the rate couriers report, so it bypasses GORM and its reflection on the hot path.
package historyrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/core/domain/model/geolocation"
	"courier-dispatch/internal/core/domain/model/kernel"
	"courier-dispatch/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS courier_locations (
	courier_id  uuid             NOT NULL,
	recorded_at timestamptz      NOT NULL,
	lat         double precision NOT NULL,
	lon         double precision NOT NULL,
	accuracy_m  double precision NOT NULL,
	speed_kmh   double precision,
	heading_deg double precision,
	suspicious  boolean          NOT NULL DEFAULT false,
	received_at timestamptz      NOT NULL DEFAULT now(),
	PRIMARY KEY (courier_id, recorded_at)
)`

const columns = `courier_id::text, recorded_at, lat, lon, accuracy_m, speed_kmh, heading_deg, suspicious`

// Repository implements ports.LocationHistory.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates the history repository on an existing pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the history table when it does not exist. The outbox table is owned by
// the GORM schema and must exist already.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Append stores the snapshot and its CourierLocationUpdated outbox row in one
// transaction. A replay of an existing (courier_id, recorded_at) writes nothing.
func (r *Repository) Append(ctx context.Context, s geolocation.Snapshot) (bool, error) {
	msg, err := ports.NewOutboxMessage(geolocation.NewLocationUpdatedEvent(s))
	if err != nil {
		return false, err
	}

	var inserted bool
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO courier_locations
				(courier_id, recorded_at, lat, lon, accuracy_m, speed_kmh, heading_deg, suspicious)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (courier_id, recorded_at) DO NOTHING`,
			s.CourierID().String(), s.RecordedAt(), s.Point().Lat(), s.Point().Lon(),
			s.AccuracyM(), s.SpeedKmh(), s.HeadingDeg(), s.Suspicious(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true

		_, err = tx.Exec(ctx, `
			INSERT INTO outbox (event_id, event_name, aggregate_type, aggregate_id, payload, occurred_at)
			VALUES ($1::uuid, $2, $3, $4::uuid, $5, $6)`,
			msg.EventID.String(), msg.EventName, msg.AggregateType, msg.AggregateID.String(),
			string(msg.Payload), msg.OccurredAt,
		)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("append location of courier %s: %w", s.CourierID(), err)
	}
	return inserted, nil
}

// Latest returns the newest stored report of the courier.
func (r *Repository) Latest(ctx context.Context, courierID kernel.UUID) (geolocation.Snapshot, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+`
		FROM courier_locations
		WHERE courier_id = $1::uuid
		ORDER BY recorded_at DESC
		LIMIT 1`, courierID.String())
	if err != nil {
		return geolocation.Snapshot{}, false, err
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSnapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return geolocation.Snapshot{}, false, nil
	}
	if err != nil {
		return geolocation.Snapshot{}, false, err
	}
	return s, true, nil
}

// LatestMany returns the newest report of every listed courier that has one.
func (r *Repository) LatestMany(
	ctx context.Context,
	courierIDs []kernel.UUID,
) (map[kernel.UUID]geolocation.Snapshot, error) {
	out := make(map[kernel.UUID]geolocation.Snapshot, len(courierIDs))
	if len(courierIDs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(courierIDs))
	for _, id := range courierIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (courier_id) `+columns+`
		FROM courier_locations
		WHERE courier_id = ANY($1::uuid[])
		ORDER BY courier_id, recorded_at DESC`, ids)
	if err != nil {
		return nil, err
	}

	snapshots, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, err
	}
	for _, s := range snapshots {
		out[s.CourierID()] = s
	}
	return out, nil
}

// Range returns the reports of a courier within period, newest first.
func (r *Repository) Range(
	ctx context.Context,
	courierID kernel.UUID,
	period kernel.TimeRange,
	limit, offset int,
) ([]geolocation.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+`
		FROM courier_locations
		WHERE courier_id = $1::uuid AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT $4 OFFSET $5`,
		courierID.String(), period.Start(), period.End(), limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSnapshot)
}

func scanSnapshot(row pgx.CollectableRow) (geolocation.Snapshot, error) {
	var (
		id         string
		recordedAt time.Time
		lat, lon   float64
		accuracy   float64
		speed      *float64
		heading    *float64
		suspicious bool
	)
	if err := row.Scan(&id, &recordedAt, &lat, &lon, &accuracy, &speed, &heading, &suspicious); err != nil {
		return geolocation.Snapshot{}, err
	}

	courierID, err := kernel.UUIDFromString(id)
	if err != nil {
		return geolocation.Snapshot{}, err
	}
	point, err := kernel.NewCoordinates(lat, lon)
	if err != nil {
		return geolocation.Snapshot{}, err
	}
	s, err := geolocation.NewSnapshot(courierID, point, recordedAt.UTC(), accuracy, speed, heading)
	if err != nil {
		return geolocation.Snapshot{}, err
	}
	return s.WithSuspicious(suspicious), nil
}
