package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/challan/internal/models"
)

// Migrate brings the schema up to date. Applied migrations are recorded in
// the migrations table, so running it again is a no-op.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20240301_create_challans",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Challan{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("challans")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	return nil
}
