package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Patient, int, error)
	Stats(ctx context.Context, owner string) (*Stats, error)
}

// ActiveMappingCounter reports how many active doctor assignments a patient
// has. Implemented by the mapping repository; used by the soft-delete guard.
type ActiveMappingCounter interface {
	CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}
