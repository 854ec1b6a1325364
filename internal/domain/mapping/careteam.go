package mapping

import (
	"context"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

// The care-team query engine: pure reads over the current mapping set. All
// active/visible filtering happens here and in the repository queries, never
// in callers.

const defaultSuggestionLimit = 5

// CareTeam returns the patient's current doctors, split into the single
// primary (nil when the patient has none) and everyone else.
func (s *Service) CareTeam(ctx context.Context, owner string, patientID uuid.UUID) (*CareTeam, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil || p.CreatedBy != owner {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}

	members, err := s.mappings.ActiveByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	team := &CareTeam{Patient: p, OtherDoctors: []*CareTeamMember{}, TotalDoctors: len(members)}
	for _, m := range members {
		if m.IsPrimary && team.PrimaryDoctor == nil {
			team.PrimaryDoctor = m
			continue
		}
		team.OtherDoctors = append(team.OtherDoctors, m)
	}
	return team, nil
}

// DoctorLoad returns a doctor's active patient panel with primary/secondary
// counts.
func (s *Service) DoctorLoad(ctx context.Context, doctorID uuid.UUID) (*DoctorLoad, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "doctor not found")
	}

	pts, err := s.mappings.ActiveByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	load := &DoctorLoad{Doctor: d, TotalPatients: len(pts), Patients: pts}
	if load.Patients == nil {
		load.Patients = []*LoadPatient{}
	}
	for _, p := range pts {
		if p.IsPrimary {
			load.PrimaryPatientsCount++
		} else {
			load.SecondaryPatientsCount++
		}
	}
	return load, nil
}

// SuggestDoctors recommends doctors for a patient: active, not already on the
// care team, least-loaded first, most experienced as the tie-break.
func (s *Service) SuggestDoctors(ctx context.Context, owner string, patientID uuid.UUID, limit int) ([]*Suggestion, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil || p.CreatedBy != owner {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	out, err := s.mappings.SuggestDoctors(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Suggestion{}
	}
	return out, nil
}

// UnassignedPatients lists the caller's active patients that have no active
// doctor assignment at all.
func (s *Service) UnassignedPatients(ctx context.Context, owner string) ([]*UnassignedPatient, error) {
	out, err := s.mappings.UnassignedPatients(ctx, owner)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*UnassignedPatient{}
	}
	return out, nil
}

// MappingStats aggregates the caller's active mappings. The average is 0, not
// an error, when the caller has no patients with doctors.
func (s *Service) MappingStats(ctx context.Context, owner string) (*Stats, error) {
	return s.mappings.Stats(ctx, owner)
}
