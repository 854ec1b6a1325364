package doctor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

func testContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"clinician"})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_CreateDoctor(t *testing.T) {
	e := echo.New()
	body := `{"name":"Dr. Lisa Cuddy","email":"cuddy@example.com","license_number":"LIC-42","specialization":"ONCOLOGY","years_of_experience":15}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	h := NewHandler(newTestService(0))
	if err := h.CreateDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_UpdateDoctor_NonOwnerGets403(t *testing.T) {
	e := echo.New()
	h := NewHandler(newTestService(0))

	d := validDoctor()
	h.svc.CreateDoctor(context.Background(), "user-1", d)

	body := `{"name":"Dr. Renamed","email":"house@example.com","license_number":"LIC-1001","specialization":"GENERAL_MEDICINE"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/doctors/"+d.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-2")
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.UpdateDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_ListSpecializations(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/specializations", nil)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	h := NewHandler(newTestService(0))
	if err := h.ListSpecializations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["CARDIOLOGY"] != "Cardiology" {
		t.Errorf("expected CARDIOLOGY entry, got %v", got)
	}
	if len(got) != len(specializations) {
		t.Errorf("expected %d specializations, got %d", len(specializations), len(got))
	}
}

func TestHandler_ListDoctors_BadSpecializationGets400(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors?specialization=VOODOO", nil)
	rec := httptest.NewRecorder()
	c := testContext(e, req, rec, "user-1")

	h := NewHandler(newTestService(0))
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
