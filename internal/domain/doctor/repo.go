package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	GetByLicense(ctx context.Context, license string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

// ActiveMappingCounter reports how many active patient assignments a doctor
// has. Implemented by the mapping repository; used by the soft-delete guard.
type ActiveMappingCounter interface {
	CountActiveByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
}
