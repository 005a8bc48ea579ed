package reports

import (
	"context"
	"time"

	"github.com/dagma-cali/reportes-360/internal/models"
)

// ReportQuery is the query surface the store supports natively: equality on
// intervention type, a [From, To) range on creation time and an optional row
// limit. Anything else (substring search) is refined in memory by the
// pipeline.
type ReportQuery struct {
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	InterventionType string
	Limit            int
}

// ReportStore reads report documents. Implementations must return results
// ordered by creation time descending. The pipeline never writes through
// this interface.
type ReportStore interface {
	FindReports(ctx context.Context, q ReportQuery) ([]*models.Report, error)
}
