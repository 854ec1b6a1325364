package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/carelink/carelink/internal/platform/apperr"
)

// -- Mock Repository --

type mockDoctorRepo struct {
	store map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{store: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.IsActive = true
	m.store[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	for _, d := range m.store {
		if d.Email == email {
			return d, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockDoctorRepo) GetByLicense(_ context.Context, license string) (*Doctor, error) {
	for _, d := range m.store {
		if d.LicenseNumber == license {
			return d, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.store[d.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	d, ok := m.store[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	d.IsActive = false
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	var r []*Doctor
	for _, d := range m.store {
		if f.Specialization != "" && d.Specialization != f.Specialization {
			continue
		}
		if f.MinExperience > 0 && d.YearsOfExperience < f.MinExperience {
			continue
		}
		if f.MaxFee != nil && (d.ConsultationFee == nil || *d.ConsultationFee > *f.MaxFee) {
			continue
		}
		if f.AvailableDay != "" && !containsDay(d.AvailableDays, f.AvailableDay) {
			continue
		}
		if f.IsActive != nil && d.IsActive != *f.IsActive {
			continue
		}
		r = append(r, d)
	}
	return r, len(r), nil
}

func (m *mockDoctorRepo) Search(_ context.Context, q string, limit, offset int) ([]*Doctor, int, error) {
	var r []*Doctor
	for _, d := range m.store {
		if d.IsActive && strings.Contains(strings.ToLower(d.Name), strings.ToLower(q)) {
			r = append(r, d)
		}
	}
	return r, len(r), nil
}

func (m *mockDoctorRepo) Stats(_ context.Context) (*Stats, error) {
	s := &Stats{
		BySpecialization: make(map[string]int),
		ByExperience:     make(map[string]int),
	}
	for _, d := range m.store {
		s.Total++
		if d.IsActive {
			s.Active++
			s.BySpecialization[string(d.Specialization)]++
			s.ByExperience[ExperienceBand(d.YearsOfExperience)]++
		} else {
			s.Inactive++
		}
	}
	return s, nil
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

type mockCounter struct{ n int }

func (m *mockCounter) CountActiveByDoctor(_ context.Context, _ uuid.UUID) (int, error) {
	return m.n, nil
}

func newTestService(activeMappings int) *Service {
	return NewService(newMockDoctorRepo(), &mockCounter{n: activeMappings})
}

func validDoctor() *Doctor {
	return &Doctor{
		Name:              "Dr. Gregory House",
		Email:             "house@example.com",
		LicenseNumber:     "LIC-1001",
		Specialization:    GeneralMedicine,
		YearsOfExperience: 20,
	}
}

// -- Service Tests --

func TestCreateDoctor_Success(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	if err := svc.CreateDoctor(context.Background(), "user-1", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if d.CreatedBy != "user-1" {
		t.Errorf("expected created_by user-1, got %s", d.CreatedBy)
	}
}

func TestCreateDoctor_InvalidSpecialization(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	d.Specialization = "ASTROLOGY"
	err := svc.CreateDoctor(context.Background(), "user-1", d)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDoctor_MissingLicense(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	d.LicenseNumber = "  "
	err := svc.CreateDoctor(context.Background(), "user-1", d)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDoctor_DuplicateLicense(t *testing.T) {
	svc := newTestService(0)
	svc.CreateDoctor(context.Background(), "user-1", validDoctor())

	dup := validDoctor()
	dup.Email = "other@example.com"
	err := svc.CreateDoctor(context.Background(), "user-2", dup)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for duplicate license, got %v", err)
	}
}

func TestGetDoctor_VisibleToAllUsers(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	// A different user can read the shared directory.
	got, err := svc.GetDoctor(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != d.ID {
		t.Errorf("expected doctor %s, got %s", d.ID, got.ID)
	}
}

func TestUpdateDoctor_NonOwnerDenied(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	upd := validDoctor()
	upd.ID = d.ID
	err := svc.UpdateDoctor(context.Background(), "user-2", upd)
	if !apperr.Is(err, apperr.KindPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestUpdateDoctor_OwnerSucceeds(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	upd := validDoctor()
	upd.ID = d.ID
	upd.YearsOfExperience = 21
	if err := svc.UpdateDoctor(context.Background(), "user-1", upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.CreatedBy != "user-1" {
		t.Errorf("ownership must not change, got %s", upd.CreatedBy)
	}
}

func TestSoftDeleteDoctor_NonOwnerDenied(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	err := svc.SoftDeleteDoctor(context.Background(), "user-2", d.ID)
	if !apperr.Is(err, apperr.KindPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestSoftDeleteDoctor_BlockedByActiveMappings(t *testing.T) {
	svc := newTestService(5)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	err := svc.SoftDeleteDoctor(context.Background(), "user-1", d.ID)
	if !apperr.Is(err, apperr.KindBlockedByActiveRelations) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatal("expected apperr.Error")
	}
	if e.BlockingCount != 5 {
		t.Errorf("expected blocking count 5, got %d", e.BlockingCount)
	}
}

func TestSoftDeleteDoctor_Success(t *testing.T) {
	svc := newTestService(0)
	d := validDoctor()
	svc.CreateDoctor(context.Background(), "user-1", d)

	if err := svc.SoftDeleteDoctor(context.Background(), "user-1", d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.IsActive {
		t.Error("expected doctor to be inactive")
	}
}

func TestListDoctors_InvalidSpecializationFilter(t *testing.T) {
	svc := newTestService(0)
	_, _, err := svc.ListDoctors(context.Background(), Filter{Specialization: "VOODOO"}, 10, 0)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListDoctors_BySpecialization(t *testing.T) {
	svc := newTestService(0)
	svc.CreateDoctor(context.Background(), "user-1", validDoctor())

	cardio := validDoctor()
	cardio.Email = "c@example.com"
	cardio.LicenseNumber = "LIC-2001"
	cardio.Specialization = Cardiology
	svc.CreateDoctor(context.Background(), "user-1", cardio)

	_, total, err := svc.ListDoctors(context.Background(), Filter{Specialization: Cardiology}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 cardiologist, got %d", total)
	}
}

func TestListDoctors_ByMaxFeeAndDay(t *testing.T) {
	svc := newTestService(0)
	svc.CreateDoctor(context.Background(), "user-1", validDoctor())

	fee := 500.0
	cheap := validDoctor()
	cheap.Email = "cheap@example.com"
	cheap.LicenseNumber = "LIC-3001"
	cheap.ConsultationFee = &fee
	cheap.AvailableDays = []string{"MONDAY", "WEDNESDAY"}
	svc.CreateDoctor(context.Background(), "user-1", cheap)

	maxFee := 600.0
	_, total, err := svc.ListDoctors(context.Background(),
		Filter{MaxFee: &maxFee, AvailableDay: "MONDAY"}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 doctor under fee on monday, got %d", total)
	}
}

func TestSearchDoctors_EmptyQuery(t *testing.T) {
	svc := newTestService(0)
	_, _, err := svc.SearchDoctors(context.Background(), "  ", 10, 0)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDoctorStats(t *testing.T) {
	svc := newTestService(0)
	svc.CreateDoctor(context.Background(), "user-1", validDoctor())

	s, err := svc.DoctorStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 1 || s.Active != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.BySpecialization[string(GeneralMedicine)] != 1 {
		t.Errorf("expected 1 general medicine doctor, got %+v", s.BySpecialization)
	}
	if s.ByExperience["11-20"] != 1 {
		t.Errorf("expected 1 doctor in the 11-20 band, got %+v", s.ByExperience)
	}
}

func TestExperienceBand(t *testing.T) {
	cases := map[int]string{0: "0-5", 5: "0-5", 6: "6-10", 10: "6-10", 11: "11-20", 20: "11-20", 21: "20+"}
	for years, want := range cases {
		if got := ExperienceBand(years); got != want {
			t.Errorf("ExperienceBand(%d) = %s, want %s", years, got, want)
		}
	}
}
