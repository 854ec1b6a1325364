package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/domain/doctor"
	"github.com/carelink/carelink/internal/domain/patient"
	"github.com/carelink/carelink/internal/platform/apperr"
)

// PatientStore and DoctorStore are the slices of the entity repositories the
// assignment service consumes.
type PatientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type DoctorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}

type Service struct {
	mappings Repository
	patients PatientStore
	doctors  DoctorStore
}

func NewService(mappings Repository, patients PatientStore, doctors DoctorStore) *Service {
	return &Service{mappings: mappings, patients: patients, doctors: doctors}
}

// ownedActivePatient is the authorization predicate every mutating operation
// runs: the patient must resolve, belong to the caller, and be active.
func (s *Service) ownedActivePatient(ctx context.Context, owner string, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}
	if p.CreatedBy != owner {
		return nil, apperr.New(apperr.KindPermissionDenied, "patient belongs to another user")
	}
	if !p.IsActive {
		return nil, apperr.New(apperr.KindInactiveEntity, "patient is inactive")
	}
	return p, nil
}

func (s *Service) activeDoctor(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "doctor not found")
	}
	if !d.IsActive {
		return nil, apperr.New(apperr.KindInactiveEntity, "doctor is inactive")
	}
	return d, nil
}

// ownedMapping resolves a mapping the caller may act on. A mapping whose
// patient belongs to another user is indistinguishable from a missing one.
func (s *Service) ownedMapping(ctx context.Context, owner string, id uuid.UUID) (*Mapping, error) {
	m, err := s.mappings.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "mapping not found")
	}
	p, err := s.patients.GetByID(ctx, m.PatientID)
	if err != nil || p.CreatedBy != owner {
		return nil, apperr.New(apperr.KindNotFound, "mapping not found")
	}
	return m, nil
}

// CreateMapping assigns a doctor to a patient. Validation order: ownership,
// patient activity, doctor existence and activity, then the duplicate gate.
// The storage layer enforces the unique active pair as a hard constraint, so
// a race between two concurrent creates still yields exactly one active row.
func (s *Service) CreateMapping(ctx context.Context, owner string, m *Mapping) error {
	if m.PatientID == uuid.Nil {
		return apperr.Validation("patient_id", "patient_id is required")
	}
	if m.DoctorID == uuid.Nil {
		return apperr.Validation("doctor_id", "doctor_id is required")
	}
	if _, err := s.ownedActivePatient(ctx, owner, m.PatientID); err != nil {
		return err
	}
	if _, err := s.activeDoctor(ctx, m.DoctorID); err != nil {
		return err
	}
	if existing, err := s.mappings.GetActiveByPair(ctx, m.PatientID, m.DoctorID); err == nil && existing != nil {
		return apperr.New(apperr.KindDuplicateMapping,
			"an active mapping already exists for this patient and doctor")
	}
	m.AssignedBy = owner
	return s.mappings.Create(ctx, m)
}

func (s *Service) GetMapping(ctx context.Context, owner string, id uuid.UUID) (*Mapping, error) {
	return s.ownedMapping(ctx, owner, id)
}

func (s *Service) ListMappings(ctx context.Context, owner string, f Filter, limit, offset int) ([]*Detail, int, error) {
	if f.Specialization != "" && !f.Specialization.Valid() {
		return nil, 0, apperr.Validation("specialization", "unknown specialization")
	}
	return s.mappings.ListByOwner(ctx, owner, f, limit, offset)
}

// UpdateMapping applies a patch to notes, is_primary and is_active. The
// patient and doctor references are immutable. Promoting to primary runs the
// same atomic demote-then-promote sequence as SetPrimary.
func (s *Service) UpdateMapping(ctx context.Context, owner string, id uuid.UUID, patch Patch) (*Mapping, error) {
	m, err := s.ownedMapping(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if patch.Notes != nil {
		m.Notes = patch.Notes
	}
	if patch.IsActive != nil {
		m.IsActive = *patch.IsActive
	}
	if patch.IsPrimary != nil {
		m.IsPrimary = *patch.IsPrimary
	}
	if m.IsPrimary && !m.IsActive {
		return nil, apperr.Validation("is_primary", "an inactive mapping cannot be primary")
	}
	if err := s.mappings.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetPrimary promotes a mapping to be its patient's single primary one.
func (s *Service) SetPrimary(ctx context.Context, owner string, mappingID uuid.UUID) (*Mapping, error) {
	m, err := s.ownedMapping(ctx, owner, mappingID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, apperr.New(apperr.KindInactiveEntity, "mapping is inactive")
	}
	if err := s.mappings.SetPrimary(ctx, m.PatientID, m.ID); err != nil {
		return nil, err
	}
	m.IsPrimary = true
	return m, nil
}

// SoftDeleteMapping deactivates a mapping. Primary status is never reassigned
// automatically: a patient may validly have zero primaries afterwards.
func (s *Service) SoftDeleteMapping(ctx context.Context, owner string, id uuid.UUID) error {
	m, err := s.ownedMapping(ctx, owner, id)
	if err != nil {
		return err
	}
	return s.mappings.SoftDelete(ctx, m.ID)
}

// BulkAssign assigns one doctor to many patients. The input set is validated
// all-or-nothing: every patient must resolve, belong to the caller and be
// active, or nothing executes. The per-patient execution phase is independent:
// already-assigned patients are skipped and never fail the call, and a created
// sibling is not rolled back by a later failure.
func (s *Service) BulkAssign(ctx context.Context, owner string, req BulkAssignRequest) (*BulkAssignResult, error) {
	// The whole call fails when the doctor does not resolve as active. Unlike
	// single create, an inactive doctor here reads as not-found: the bulk
	// target set simply has no such doctor to assign.
	if _, err := s.activeDoctor(ctx, req.DoctorID); err != nil {
		if apperr.Is(err, apperr.KindInactiveEntity) {
			return nil, apperr.New(apperr.KindNotFound, "doctor not found")
		}
		return nil, err
	}
	if len(req.PatientIDs) == 0 {
		return nil, apperr.Validation("patient_ids", "at least one patient_id is required")
	}

	seen := make(map[uuid.UUID]bool, len(req.PatientIDs))
	var ids []uuid.UUID
	for _, id := range req.PatientIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	validated := make(map[uuid.UUID]*patient.Patient, len(ids))
	var invalid []string
	for _, id := range ids {
		p, err := s.patients.GetByID(ctx, id)
		if err != nil || p.CreatedBy != owner || !p.IsActive {
			invalid = append(invalid, id.String())
			continue
		}
		validated[id] = p
	}
	if len(invalid) > 0 {
		return nil, apperr.Validation("patient_ids",
			fmt.Sprintf("patients not found, inactive, or not owned by caller: %s",
				strings.Join(invalid, ", ")))
	}

	result := &BulkAssignResult{
		DoctorID: req.DoctorID,
		Created:  []BulkItem{},
		Skipped:  []BulkItem{},
	}
	for _, id := range ids {
		p := validated[id]
		if existing, err := s.mappings.GetActiveByPair(ctx, id, req.DoctorID); err == nil && existing != nil {
			result.Skipped = append(result.Skipped, BulkItem{
				PatientID: id, PatientName: p.Name, Reason: SkipReasonAlreadyAssigned,
			})
			continue
		}
		m := &Mapping{
			PatientID:  id,
			DoctorID:   req.DoctorID,
			AssignedBy: owner,
			Notes:      req.Notes,
			IsPrimary:  req.IsPrimary,
		}
		if err := s.mappings.Create(ctx, m); err != nil {
			// A race lost to a concurrent create for the same pair is a skip,
			// not a failure.
			if apperr.Is(err, apperr.KindDuplicateMapping) {
				result.Skipped = append(result.Skipped, BulkItem{
					PatientID: id, PatientName: p.Name, Reason: SkipReasonAlreadyAssigned,
				})
				continue
			}
			return nil, err
		}
		mid := m.ID
		result.Created = append(result.Created, BulkItem{
			PatientID: id, PatientName: p.Name, MappingID: &mid,
		})
	}
	result.CreatedCount = len(result.Created)
	result.SkippedCount = len(result.Skipped)
	return result, nil
}
