package mapping

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists mappings and answers the derived care-team queries.
// Create and Update run the primary-promotion sequence transactionally when
// the written row has is_primary=true; SetPrimary exposes the same sequence
// directly. Implementations must enforce the unique active (patient, doctor)
// pair at the storage layer and surface violations as DuplicateMapping.
type Repository interface {
	Create(ctx context.Context, m *Mapping) error
	GetByID(ctx context.Context, id uuid.UUID) (*Mapping, error)
	GetActiveByPair(ctx context.Context, patientID, doctorID uuid.UUID) (*Mapping, error)
	ListByOwner(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Detail, int, error)
	Update(ctx context.Context, m *Mapping) error
	SetPrimary(ctx context.Context, patientID, mappingID uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	ActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*CareTeamMember, error)
	ActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*LoadPatient, error)
	CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	CountActiveByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
	SuggestDoctors(ctx context.Context, patientID uuid.UUID, limit int) ([]*Suggestion, error)
	UnassignedPatients(ctx context.Context, owner string) ([]*UnassignedPatient, error)
	Stats(ctx context.Context, owner string) (*Stats, error)
}
