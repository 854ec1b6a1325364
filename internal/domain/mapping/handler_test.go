package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/domain/doctor"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/metrics"
)

func testContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"clinician"})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_CreateMapping(t *testing.T) {
	e := echo.New()
	f := newFixture()
	alice := f.addPatient("user-1", "Alice")
	brown := f.addDoctor("Dr. Brown", doctor.Cardiology, 10)
	h := NewHandler(f.svc, metrics.New())

	body := fmt.Sprintf(`{"patient_id":%q,"doctor_id":%q,"is_primary":true}`, alice.ID, brown.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mappings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	if err := h.CreateMapping(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var m Mapping
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if !m.IsPrimary || m.AssignedBy != "user-1" {
		t.Errorf("unexpected mapping: %+v", m)
	}
}

func TestHandler_CreateMapping_DuplicateGets409(t *testing.T) {
	e := echo.New()
	f := newFixture()
	alice := f.addPatient("user-1", "Alice")
	brown := f.addDoctor("Dr. Brown", doctor.Cardiology, 10)
	f.svc.CreateMapping(context.Background(), "user-1",
		&Mapping{PatientID: alice.ID, DoctorID: brown.ID})
	h := NewHandler(f.svc, nil)

	body := fmt.Sprintf(`{"patient_id":%q,"doctor_id":%q}`, alice.ID, brown.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mappings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	if err := h.CreateMapping(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_BulkAssign(t *testing.T) {
	e := echo.New()
	f := newFixture()
	alice := f.addPatient("user-1", "Alice")
	carol := f.addPatient("user-1", "Carol")
	brown := f.addDoctor("Dr. Brown", doctor.Cardiology, 10)
	h := NewHandler(f.svc, metrics.New())

	body := fmt.Sprintf(`{"doctor_id":%q,"patient_ids":[%q,%q]}`, brown.ID, alice.ID, carol.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mappings/bulk-assign", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	if err := h.BulkAssign(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res BulkAssignResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.CreatedCount != 2 || res.SkippedCount != 0 {
		t.Errorf("expected created=2 skipped=0, got %d/%d", res.CreatedCount, res.SkippedCount)
	}
}

func TestHandler_CareTeam_UnownedGets404(t *testing.T) {
	e := echo.New()
	f := newFixture()
	alice := f.addPatient("user-1", "Alice")
	h := NewHandler(f.svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+alice.ID.String()+"/care-team", nil)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-2")
	c.SetParamNames("id")
	c.SetParamValues(alice.ID.String())

	if err := h.CareTeam(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_SetPrimary(t *testing.T) {
	e := echo.New()
	f := newFixture()
	alice := f.addPatient("user-1", "Alice")
	brown := f.addDoctor("Dr. Brown", doctor.Cardiology, 10)
	m := &Mapping{PatientID: alice.ID, DoctorID: brown.ID}
	f.svc.CreateMapping(context.Background(), "user-1", m)
	h := NewHandler(f.svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mappings/"+m.ID.String()+"/set-primary", nil)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())

	if err := h.SetPrimary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Mapping
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.IsPrimary {
		t.Error("expected mapping to be primary")
	}
}

func TestHandler_MappingStats(t *testing.T) {
	e := echo.New()
	f := newFixture()
	h := NewHandler(f.svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mappings/stats", nil)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	if err := h.MappingStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var s Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.TotalMappings != 0 || s.AverageDoctorsPerPatient != 0 {
		t.Errorf("expected empty stats, got %+v", s)
	}
}
