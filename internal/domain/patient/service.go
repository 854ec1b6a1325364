package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

type Service struct {
	patients Repository
	mappings ActiveMappingCounter
}

func NewService(patients Repository, mappings ActiveMappingCounter) *Service {
	return &Service{patients: patients, mappings: mappings}
}

func validatePatient(p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "name is required")
	}
	if !strings.Contains(p.Email, "@") {
		return apperr.Validation("email", "a valid email is required")
	}
	if p.Gender != nil && !validGenders[*p.Gender] {
		return apperr.Validation("gender", "gender must be male, female or other")
	}
	return nil
}

// CreatePatient creates a patient owned by the calling user.
func (s *Service) CreatePatient(ctx context.Context, owner string, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	if existing, err := s.patients.GetByEmail(ctx, p.Email); err == nil && existing != nil {
		return apperr.Validation("email", "a patient with this email already exists")
	}
	p.CreatedBy = owner
	return s.patients.Create(ctx, p)
}

// GetPatient returns an owned patient. Patients created by other users are
// indistinguishable from missing ones.
func (s *Service) GetPatient(ctx context.Context, owner string, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil || p.CreatedBy != owner {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByOwner(ctx, owner, f, limit, offset)
}

// UpdatePatient replaces an owned patient's editable fields. Ownership and
// creation metadata never change.
func (s *Service) UpdatePatient(ctx context.Context, owner string, p *Patient) error {
	existing, err := s.GetPatient(ctx, owner, p.ID)
	if err != nil {
		return err
	}
	if err := validatePatient(p); err != nil {
		return err
	}
	if p.Email != existing.Email {
		if other, err := s.patients.GetByEmail(ctx, p.Email); err == nil && other != nil && other.ID != p.ID {
			return apperr.Validation("email", "a patient with this email already exists")
		}
	}
	p.CreatedBy = existing.CreatedBy
	p.CreatedAt = existing.CreatedAt
	return s.patients.Update(ctx, p)
}

// SoftDeletePatient deactivates an owned patient. A patient with active
// doctor assignments cannot be deleted; the error reports how many block it.
func (s *Service) SoftDeletePatient(ctx context.Context, owner string, id uuid.UUID) error {
	p, err := s.GetPatient(ctx, owner, id)
	if err != nil {
		return err
	}
	n, err := s.mappings.CountActiveByPatient(ctx, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Blocked("patient", n)
	}
	return s.patients.SoftDelete(ctx, p.ID)
}

func (s *Service) PatientStats(ctx context.Context, owner string) (*Stats, error) {
	return s.patients.Stats(ctx, owner)
}
