package backup

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/internal/export"
	"example.com/backstage/services/challan/internal/models"
)

// Exporter renders the challan register
type Exporter interface {
	ExportChallans(ctx context.Context, filter models.ListFilter) ([]byte, error)
}

// Runner writes the full visible register to a sink
type Runner struct {
	exporter Exporter
	sink     Sink
	now      func() time.Time
}

// NewRunner creates a backup runner
func NewRunner(exporter Exporter, sink Sink) *Runner {
	return &Runner{exporter: exporter, sink: sink, now: time.Now}
}

// Run exports the register and stores it, returning the backup location
func (r *Runner) Run(ctx context.Context) (string, error) {
	started := r.now()

	data, err := r.exporter.ExportChallans(ctx, models.ListFilter{})
	if err != nil {
		return "", errors.Wrap(err, "failed to export challan register")
	}

	location, err := r.sink.Write(ctx, export.FileName(started.UTC()), data)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("location", location).
		Int("bytes", len(data)).
		Dur("duration", time.Since(started)).
		Msg("Challan register backed up")
	return location, nil
}
