package db

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/challan/internal/metrics"
)

const startTimeKey = "metrics:start_time"

// Database query types
const (
	QueryTypeSelect = "select"
	QueryTypeInsert = "insert"
	QueryTypeRaw    = "raw"
)

// RegisterMetricsHooks times every create, query and raw statement
func RegisterMetricsHooks(db *gorm.DB, collector *metrics.Metrics) error {
	after := func(queryType string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			collector.RecordDatabaseQuery(queryType, tx.Error, duration(tx))
		}
	}

	cb := db.Callback()
	hooks := []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", markStart),
		cb.Create().After("gorm:create").Register("metrics:after_create", after(QueryTypeInsert)),
		cb.Query().Before("gorm:query").Register("metrics:before_query", markStart),
		cb.Query().After("gorm:query").Register("metrics:after_query", after(QueryTypeSelect)),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", markStart),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", after(QueryTypeRaw)),
	}
	for _, err := range hooks {
		if err != nil {
			return errors.Wrap(err, "failed to register metrics hooks")
		}
	}
	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startTimeKey, time.Now())
}

func duration(tx *gorm.DB) time.Duration {
	if start, ok := tx.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
