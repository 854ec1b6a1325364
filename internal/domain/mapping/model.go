package mapping

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/domain/doctor"
	"github.com/carelink/carelink/internal/domain/patient"
)

// Mapping assigns one doctor to one patient. At most one active mapping may
// exist per (patient, doctor) pair, and at most one active mapping per patient
// may be primary. Rows are never physically deleted; is_active=false is the
// terminal state and assigned_by/assigned_at persist for audit.
type Mapping struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	IsPrimary  bool      `db:"is_primary" json:"is_primary"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Detail is a mapping joined with the names callers need to render a list row.
type Detail struct {
	Mapping
	PatientName          string                `json:"patient_name"`
	DoctorName           string                `json:"doctor_name"`
	DoctorSpecialization doctor.Specialization `json:"doctor_specialization"`
}

// Patch carries the mutable mapping fields. Patient and doctor references are
// immutable once set, so they are deliberately absent.
type Patch struct {
	Notes     *string `json:"notes"`
	IsPrimary *bool   `json:"is_primary"`
	IsActive  *bool   `json:"is_active"`
}

// Filter narrows mapping listings. Search matches patient name, doctor name
// and notes.
type Filter struct {
	IsPrimary      *bool
	IsActive       *bool
	Specialization doctor.Specialization
	AssignedAfter  *time.Time
	AssignedBefore *time.Time
	Search         string
}

// BulkAssignRequest assigns one doctor to many patients in a single call.
type BulkAssignRequest struct {
	DoctorID   uuid.UUID   `json:"doctor_id"`
	PatientIDs []uuid.UUID `json:"patient_ids"`
	Notes      *string     `json:"notes,omitempty"`
	IsPrimary  bool        `json:"is_primary"`
}

// BulkItem is the per-patient outcome of a bulk assignment.
type BulkItem struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	MappingID   *uuid.UUID `json:"mapping_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

const SkipReasonAlreadyAssigned = "already-assigned"

// BulkAssignResult itemizes created and skipped patients. The two lists
// partition the validated input set.
type BulkAssignResult struct {
	DoctorID     uuid.UUID  `json:"doctor_id"`
	CreatedCount int        `json:"created_count"`
	SkippedCount int        `json:"skipped_count"`
	Created      []BulkItem `json:"created"`
	Skipped      []BulkItem `json:"skipped"`
}

// CareTeamMember is one doctor's active assignment to a patient.
type CareTeamMember struct {
	MappingID      uuid.UUID             `db:"mapping_id" json:"mapping_id"`
	DoctorID       uuid.UUID             `db:"doctor_id" json:"doctor_id"`
	DoctorName     string                `db:"doctor_name" json:"doctor_name"`
	Specialization doctor.Specialization `db:"specialization" json:"specialization"`
	IsPrimary      bool                  `db:"is_primary" json:"is_primary"`
	AssignedAt     time.Time             `db:"assigned_at" json:"assigned_at"`
	Notes          *string               `db:"notes" json:"notes,omitempty"`
}

// CareTeam is the set of doctors currently assigned to a patient.
// PrimaryDoctor is nil when the patient has no primary, which is a valid
// state distinct from having no doctors at all.
type CareTeam struct {
	Patient       *patient.Patient  `json:"patient"`
	PrimaryDoctor *CareTeamMember   `json:"primary_doctor"`
	OtherDoctors  []*CareTeamMember `json:"other_doctors"`
	TotalDoctors  int               `json:"total_doctors"`
}

// LoadPatient is one patient's active assignment to a doctor.
type LoadPatient struct {
	MappingID   uuid.UUID `db:"mapping_id" json:"mapping_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	IsPrimary   bool      `db:"is_primary" json:"is_primary"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}

// DoctorLoad summarizes a doctor's active patient panel.
type DoctorLoad struct {
	Doctor                 *doctor.Doctor `json:"doctor"`
	TotalPatients          int            `json:"total_patients"`
	PrimaryPatientsCount   int            `json:"primary_patients_count"`
	SecondaryPatientsCount int            `json:"secondary_patients_count"`
	Patients               []*LoadPatient `json:"patients"`
}

// Suggestion is a candidate doctor for a patient, ranked by current load
// ascending then experience descending.
type Suggestion struct {
	Doctor         *doctor.Doctor `json:"doctor"`
	ActivePatients int            `json:"active_patients"`
}

// UnassignedPatient is an active patient with zero active mappings.
type UnassignedPatient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Stats aggregates an owner's active mappings.
type Stats struct {
	TotalMappings            int            `json:"total_mappings"`
	PrimaryMappings          int            `json:"primary_mappings"`
	PatientsWithDoctors      int            `json:"patients_with_doctors"`
	PatientsWithoutDoctors   int            `json:"patients_without_doctors"`
	BySpecialization         map[string]int `json:"by_specialization"`
	AverageDoctorsPerPatient float64        `json:"average_doctors_per_patient"`
}
