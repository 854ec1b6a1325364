package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. A patient is owned by the user who
// created it; all reads and mutations are scoped to that owner.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                *string    `db:"gender" json:"gender,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	MedicalHistory        *string    `db:"medical_history" json:"medical_history,omitempty"`
	Allergies             *string    `db:"allergies" json:"allergies,omitempty"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedBy             string     `db:"created_by" json:"created_by"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true,
}

// Age returns the patient's age in whole years, or -1 when the date of birth
// is unknown.
func (p *Patient) Age() int {
	if p.DateOfBirth == nil {
		return -1
	}
	return ageAt(*p.DateOfBirth, time.Now())
}

func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	// Subtract one if this year's birthday has not happened yet
	if now.Month() < dob.Month() ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Filter narrows patient listings.
type Filter struct {
	Name         string
	Email        string
	Phone        string
	Gender       string
	MinAge       int // 0 means unset
	MaxAge       int // 0 means unset
	HasAllergies *bool
	IsActive     *bool
}

// Stats summarizes an owner's patient roster.
type Stats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Inactive int            `json:"inactive"`
	ByGender map[string]int `json:"by_gender"`
	ByAge    map[string]int `json:"by_age_group"`
}

// AgeGroup buckets an age for the stats histogram.
func AgeGroup(age int) string {
	switch {
	case age < 0:
		return "unknown"
	case age < 18:
		return "0-17"
	case age < 36:
		return "18-35"
	case age < 56:
		return "36-55"
	case age < 76:
		return "56-75"
	default:
		return "76+"
	}
}
