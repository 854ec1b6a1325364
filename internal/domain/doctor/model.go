package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Specialization is a fixed medical specialty code.
type Specialization string

const (
	Cardiology       Specialization = "CARDIOLOGY"
	Dermatology      Specialization = "DERMATOLOGY"
	Endocrinology    Specialization = "ENDOCRINOLOGY"
	Gastroenterology Specialization = "GASTROENTEROLOGY"
	GeneralMedicine  Specialization = "GENERAL_MEDICINE"
	Neurology        Specialization = "NEUROLOGY"
	Oncology         Specialization = "ONCOLOGY"
	Orthopedics      Specialization = "ORTHOPEDICS"
	Pediatrics       Specialization = "PEDIATRICS"
	Psychiatry       Specialization = "PSYCHIATRY"
	Radiology        Specialization = "RADIOLOGY"
	Surgery          Specialization = "SURGERY"
	Other            Specialization = "OTHER"
)

var specializations = map[Specialization]string{
	Cardiology:       "Cardiology",
	Dermatology:      "Dermatology",
	Endocrinology:    "Endocrinology",
	Gastroenterology: "Gastroenterology",
	GeneralMedicine:  "General Medicine",
	Neurology:        "Neurology",
	Oncology:         "Oncology",
	Orthopedics:      "Orthopedics",
	Pediatrics:       "Pediatrics",
	Psychiatry:       "Psychiatry",
	Radiology:        "Radiology",
	Surgery:          "Surgery",
	Other:            "Other",
}

func (s Specialization) Valid() bool {
	_, ok := specializations[s]
	return ok
}

// Display returns the human-readable specialty name.
func (s Specialization) Display() string {
	if d, ok := specializations[s]; ok {
		return d
	}
	return string(s)
}

// Specializations lists all valid codes with display names, for pickers.
func Specializations() map[Specialization]string {
	out := make(map[Specialization]string, len(specializations))
	for k, v := range specializations {
		out[k] = v
	}
	return out
}

// Doctor maps to the doctors table. Unlike patients, doctors are a shared
// directory: every authenticated user can read them, but only the creating
// user may modify or deactivate a record.
type Doctor struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Email             string         `db:"email" json:"email"`
	Phone             *string        `db:"phone" json:"phone,omitempty"`
	LicenseNumber     string         `db:"license_number" json:"license_number"`
	Specialization    Specialization `db:"specialization" json:"specialization"`
	YearsOfExperience int            `db:"years_of_experience" json:"years_of_experience"`
	Qualification     *string        `db:"qualification" json:"qualification,omitempty"`
	ClinicAddress     *string        `db:"clinic_address" json:"clinic_address,omitempty"`
	ConsultationFee   *float64       `db:"consultation_fee" json:"consultation_fee,omitempty"`
	AvailableDays     []string       `db:"available_days" json:"available_days,omitempty"`
	AvailableFrom     *string        `db:"available_from" json:"available_from,omitempty"`
	AvailableTo       *string        `db:"available_to" json:"available_to,omitempty"`
	CreatedBy         string         `db:"created_by" json:"created_by"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Filter narrows doctor listings.
type Filter struct {
	Name           string
	Specialization Specialization
	MinExperience  int // 0 means unset
	MaxFee         *float64
	AvailableDay   string // e.g. "MONDAY"
	IsActive       *bool
}

// ExperienceBand buckets years of experience for the stats histogram.
func ExperienceBand(years int) string {
	switch {
	case years <= 5:
		return "0-5"
	case years <= 10:
		return "6-10"
	case years <= 20:
		return "11-20"
	default:
		return "20+"
	}
}

// Stats summarizes the doctor directory.
type Stats struct {
	Total            int            `json:"total"`
	Active           int            `json:"active"`
	Inactive         int            `json:"inactive"`
	BySpecialization map[string]int `json:"by_specialization"`
	ByExperience     map[string]int `json:"by_experience"`
	AvgExperience    float64        `json:"avg_years_of_experience"`
	AvgFee           float64        `json:"avg_consultation_fee"`
}
