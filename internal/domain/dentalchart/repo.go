package dentalchart

import (
	"context"

	"github.com/google/uuid"
)

// ChartRepository persists whole chart documents. Implementations return
// ErrNotFound for missing charts, ErrConflict when a second chart is created
// for the same (patient, dentition), and wrap driver failures in ErrTransport.
type ChartRepository interface {
	Create(ctx context.Context, d *ChartDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChartDocument, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID, isChild bool) (*ChartDocument, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error)
	Update(ctx context.Context, d *ChartDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ChartDocument, int, error)
}
