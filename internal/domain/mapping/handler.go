package mapping

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/domain/doctor"
	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/metrics"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc *Service
	reg *metrics.Registry
}

// NewHandler builds the mapping handler. reg may be nil in tests.
func NewHandler(svc *Service, reg *metrics.Registry) *Handler {
	return &Handler{svc: svc, reg: reg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "clinician")

	g := api.Group("", role)
	g.POST("/mappings", h.CreateMapping)
	g.GET("/mappings", h.ListMappings)
	g.POST("/mappings/bulk-assign", h.BulkAssign)
	g.GET("/mappings/stats", h.MappingStats)
	g.GET("/mappings/unassigned-patients", h.UnassignedPatients)
	g.GET("/mappings/:id", h.GetMapping)
	g.PUT("/mappings/:id", h.UpdateMapping)
	g.DELETE("/mappings/:id", h.DeleteMapping)
	g.POST("/mappings/:id/set-primary", h.SetPrimary)
	g.GET("/patients/:id/care-team", h.CareTeam)
	g.GET("/patients/:id/suggested-doctors", h.SuggestDoctors)
	g.GET("/doctors/:id/load", h.DoctorLoad)
}

func (h *Handler) CreateMapping(c echo.Context) error {
	var m Mapping
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreateMapping(c.Request().Context(), owner, &m); err != nil {
		return apperr.Respond(c, err)
	}
	if h.reg != nil {
		h.reg.MappingsCreated.Inc()
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.GetMapping(c.Request().Context(), owner, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMappings(c echo.Context) error {
	pg := pagination.FromContext(c)
	owner := auth.UserIDFromContext(c.Request().Context())

	f := Filter{
		Specialization: doctor.Specialization(c.QueryParam("specialization")),
		Search:         c.QueryParam("search"),
	}
	if v := c.QueryParam("is_primary"); v != "" {
		b := v == "true"
		f.IsPrimary = &b
	}
	if v := c.QueryParam("is_active"); v != "" {
		b := v == "true"
		f.IsActive = &b
	}
	if v := c.QueryParam("assigned_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "assigned_after must be RFC3339")
		}
		f.AssignedAfter = &t
	}
	if v := c.QueryParam("assigned_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "assigned_before must be RFC3339")
		}
		f.AssignedBefore = &t
	}

	items, total, err := h.svc.ListMappings(c.Request().Context(), owner, f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.UpdateMapping(c.Request().Context(), owner, id, patch)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMapping(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.SoftDeleteMapping(c.Request().Context(), owner, id); err != nil {
		return apperr.Respond(c, err)
	}
	if h.reg != nil {
		h.reg.MappingsDeleted.Inc()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetPrimary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	m, err := h.svc.SetPrimary(c.Request().Context(), owner, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) BulkAssign(c echo.Context) error {
	var req BulkAssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	result, err := h.svc.BulkAssign(c.Request().Context(), owner, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if h.reg != nil {
		h.reg.BulkAssignItems.WithLabelValues("created").Add(float64(result.CreatedCount))
		h.reg.BulkAssignItems.WithLabelValues("skipped").Add(float64(result.SkippedCount))
		h.reg.MappingsCreated.Add(float64(result.CreatedCount))
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CareTeam(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	team, err := h.svc.CareTeam(c.Request().Context(), owner, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, team)
}

func (h *Handler) SuggestDoctors(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	owner := auth.UserIDFromContext(c.Request().Context())
	out, err := h.svc.SuggestDoctors(c.Request().Context(), owner, id, limit)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DoctorLoad(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	load, err := h.svc.DoctorLoad(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, load)
}

func (h *Handler) UnassignedPatients(c echo.Context) error {
	owner := auth.UserIDFromContext(c.Request().Context())
	out, err := h.svc.UnassignedPatients(c.Request().Context(), owner)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) MappingStats(c echo.Context) error {
	owner := auth.UserIDFromContext(c.Request().Context())
	stats, err := h.svc.MappingStats(c.Request().Context(), owner)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
