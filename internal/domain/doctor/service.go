package doctor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

type Service struct {
	doctors  Repository
	mappings ActiveMappingCounter
}

func NewService(doctors Repository, mappings ActiveMappingCounter) *Service {
	return &Service{doctors: doctors, mappings: mappings}
}

func validateDoctor(d *Doctor) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.Validation("name", "name is required")
	}
	if !strings.Contains(d.Email, "@") {
		return apperr.Validation("email", "a valid email is required")
	}
	if strings.TrimSpace(d.LicenseNumber) == "" {
		return apperr.Validation("license_number", "license number is required")
	}
	if !d.Specialization.Valid() {
		return apperr.Validation("specialization", "unknown specialization")
	}
	if d.YearsOfExperience < 0 {
		return apperr.Validation("years_of_experience", "years of experience cannot be negative")
	}
	return nil
}

// CreateDoctor registers a doctor in the shared directory. Email and license
// number must be unique across the tenant.
func (s *Service) CreateDoctor(ctx context.Context, owner string, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	if existing, err := s.doctors.GetByEmail(ctx, d.Email); err == nil && existing != nil {
		return apperr.Validation("email", "a doctor with this email already exists")
	}
	if existing, err := s.doctors.GetByLicense(ctx, d.LicenseNumber); err == nil && existing != nil {
		return apperr.Validation("license_number", "a doctor with this license number already exists")
	}
	d.CreatedBy = owner
	return s.doctors.Create(ctx, d)
}

// GetDoctor returns a doctor by id. The directory is shared, so any
// authenticated user may read any record.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "doctor not found")
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	if f.Specialization != "" && !f.Specialization.Valid() {
		return nil, 0, apperr.Validation("specialization", "unknown specialization")
	}
	return s.doctors.List(ctx, f, limit, offset)
}

func (s *Service) SearchDoctors(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error) {
	if strings.TrimSpace(q) == "" {
		return nil, 0, apperr.Validation("q", "search query is required")
	}
	return s.doctors.Search(ctx, q, limit, offset)
}

// UpdateDoctor modifies a doctor record. Only the user who created the record
// may change it; everyone else gets a permission error, not a 404, since the
// record itself is visible to them.
func (s *Service) UpdateDoctor(ctx context.Context, owner string, d *Doctor) error {
	existing, err := s.GetDoctor(ctx, d.ID)
	if err != nil {
		return err
	}
	if existing.CreatedBy != owner {
		return apperr.New(apperr.KindPermissionDenied, "only the creating user may modify this doctor")
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	if d.Email != existing.Email {
		if other, err := s.doctors.GetByEmail(ctx, d.Email); err == nil && other != nil && other.ID != d.ID {
			return apperr.Validation("email", "a doctor with this email already exists")
		}
	}
	if d.LicenseNumber != existing.LicenseNumber {
		if other, err := s.doctors.GetByLicense(ctx, d.LicenseNumber); err == nil && other != nil && other.ID != d.ID {
			return apperr.Validation("license_number", "a doctor with this license number already exists")
		}
	}
	d.CreatedBy = existing.CreatedBy
	d.CreatedAt = existing.CreatedAt
	return s.doctors.Update(ctx, d)
}

// SoftDeleteDoctor deactivates a doctor. Blocked while the doctor still has
// active patient assignments.
func (s *Service) SoftDeleteDoctor(ctx context.Context, owner string, id uuid.UUID) error {
	existing, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	if existing.CreatedBy != owner {
		return apperr.New(apperr.KindPermissionDenied, "only the creating user may deactivate this doctor")
	}
	n, err := s.mappings.CountActiveByDoctor(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Blocked("doctor", n)
	}
	return s.doctors.SoftDelete(ctx, id)
}

func (s *Service) DoctorStats(ctx context.Context) (*Stats, error) {
	return s.doctors.Stats(ctx)
}
