package postgres

import (
	"courier-dispatch/internal/adapters/out/postgres/courierrepo"
	"courier-dispatch/internal/adapters/out/postgres/outboxrepo"
	"courier-dispatch/internal/adapters/out/postgres/packagerepo"

	"gorm.io/gorm"
)

// AutoMigrate creates or extends the tables of the GORM-managed aggregates and the outbox.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&courierrepo.CourierDTO{},
		&packagerepo.PackageDTO{},
		&outboxrepo.OutboxDTO{},
	)
}
