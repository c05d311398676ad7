package dentalchart

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentix/dentix/internal/platform/auth"
	"github.com/dentix/dentix/pkg/pagination"
)

// Response is the envelope of every chart endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

type Handler struct {
	svc    *Service
	viewer *Viewer
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, viewer: NewViewer(svc.Source())}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleHygienist, auth.RoleAssistant))
	read.GET("/dental-charts/catalogs", h.GetCatalogs)
	read.GET("/dental-charts/geometry/:tooth", h.GetGeometry)
	read.GET("/dental-charts/:id", h.GetChart)
	read.GET("/dental-charts/:id/edit-ref", h.GetEditRef)
	read.GET("/patients/:patientId/dental-chart", h.LoadChart)
	read.GET("/patients/:patientId/dental-charts", h.ViewPatientCharts)
	read.GET("/patients/:patientId/dental-charts/teeth/:tooth", h.ViewTooth)

	write := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleHygienist))
	write.POST("/patients/:patientId/dental-chart", h.SaveChart)
	write.POST("/patients/:patientId/dental-chart/teeth/:tooth/surfaces", h.ToggleSurface)
	write.PUT("/patients/:patientId/dental-chart/teeth/:tooth/roots", h.SetRoot)
	write.DELETE("/patients/:patientId/dental-chart/teeth/:tooth/roots/:position", h.RemoveRoot)
	write.PUT("/patients/:patientId/dental-chart/teeth/:tooth/status", h.SetStatus)
	write.PUT("/patients/:patientId/dental-chart/teeth/:tooth/note", h.SetNote)
	write.PUT("/patients/:patientId/dental-chart/teeth/:tooth/layers", h.SetLayers)
	write.DELETE("/dental-charts/:id", h.DeleteChart)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/dental-charts", h.ListCharts)
}

func (h *Handler) GetCatalogs(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]interface{}{
		"surfaceConditions":   SurfaceConditions(),
		"overallStatuses":     OverallStatuses(),
		"rootCanalConditions": RootConditions(),
	})
}

func (h *Handler) GetGeometry(c echo.Context) error {
	isChild, err := dentitionParam(c)
	if err != nil {
		return fail(c, err)
	}
	tooth, err := toothParam(c)
	if err != nil {
		return fail(c, err)
	}
	g, err := ResolveGeometry(tooth, isChild)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, g)
}

// LoadChart returns the chart for one dentition; a missing chart is a
// successful empty result.
func (h *Handler) LoadChart(c echo.Context) error {
	pid, err := patientParam(c)
	if err != nil {
		return fail(c, err)
	}
	isChild, err := dentitionParam(c)
	if err != nil {
		return fail(c, err)
	}
	doc, err := h.svc.GetPatientChart(c.Request().Context(), pid, isChild)
	if errors.Is(err, ErrNotFound) {
		return ok(c, http.StatusOK, nil)
	}
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, doc)
}

func (h *Handler) SaveChart(c echo.Context) error {
	pid, err := patientParam(c)
	if err != nil {
		return fail(c, err)
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, ErrMalformedDocument)
	}
	if v := c.QueryParam("isChild"); v != "" {
		isChild, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, ErrValidation)
		}
		body = withIsChild(body, isChild)
	}
	doc, err := ParseChartDocument(body)
	if err != nil {
		return fail(c, err)
	}
	saved, created, err := h.svc.SaveChart(c.Request().Context(), pid, doc, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return fail(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return ok(c, status, saved)
}

// withIsChild fills a missing isChild field from the query string.
func withIsChild(body []byte, isChild bool) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return body
	}
	if _, present := fields["isChild"]; present {
		return body
	}
	fields["isChild"] = json.RawMessage(strconv.FormatBool(isChild))
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

func (h *Handler) ViewPatientCharts(c echo.Context) error {
	pid, err := patientParam(c)
	if err != nil {
		return fail(c, err)
	}
	charts, err := h.viewer.LoadPatientCharts(c.Request().Context(), pid)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fail(c, err)
	}
	active := charts.DefaultSelection()
	if v := c.QueryParam("dentition"); v != "" {
		if active, err = ParseDentition(v); err != nil {
			return fail(c, err)
		}
	}
	return ok(c, http.StatusOK, map[string]interface{}{
		"patientId": pid,
		"adult":     charts.Adult,
		"child":     charts.Child,
		"active":    active,
	})
}

func (h *Handler) ViewTooth(c echo.Context) error {
	pid, err := patientParam(c)
	if err != nil {
		return fail(c, err)
	}
	tooth, err := toothParam(c)
	if err != nil {
		return fail(c, err)
	}
	charts, err := h.viewer.LoadPatientCharts(c.Request().Context(), pid)
	if err != nil {
		return fail(c, err)
	}
	sel := charts.DefaultSelection()
	if v := c.QueryParam("dentition"); v != "" {
		if sel, err = ParseDentition(v); err != nil {
			return fail(c, err)
		}
	}
	doc := charts.Active(sel)
	view, err := ViewTooth(doc, tooth)
	if err != nil {
		return fail(c, err)
	}
	explanation, err := Explain(doc, tooth)
	if err != nil {
		return fail(c, err)
	}
	display, err := DisplayLayers(tooth, doc.IsChild, view.CustomLayers)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{
		"tooth":         view,
		"explanation":   explanation,
		"displayLayers": display,
	})
}

type surfaceRequest struct {
	Surface   string `json:"surface"`
	Condition string `json:"condition"`
}

type rootRequest struct {
	Position  string `json:"position"`
	Condition string `json:"condition"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type layersRequest struct {
	Layers []PaintedLayer `json:"layers"`
}

func (h *Handler) ToggleSurface(c echo.Context) error {
	var req surfaceRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, ErrValidation)
	}
	return h.editTooth(c, "toggle_surface", func(s *ChartState, tooth int) error {
		surface, err := ParseSurfaceName(req.Surface)
		if err != nil {
			return err
		}
		return s.ToggleSurfaceCondition(tooth, surface, SurfaceConditionKey(req.Condition))
	})
}

func (h *Handler) SetRoot(c echo.Context) error {
	var req rootRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, ErrValidation)
	}
	return h.editTooth(c, "set_root", func(s *ChartState, tooth int) error {
		return s.SetRootCondition(tooth, RootPosition(req.Position), RootConditionKey(req.Condition))
	})
}

func (h *Handler) RemoveRoot(c echo.Context) error {
	pos := RootPosition(c.Param("position"))
	return h.editTooth(c, "remove_root", func(s *ChartState, tooth int) error {
		return s.RemoveRootCondition(tooth, pos)
	})
}

func (h *Handler) SetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, ErrValidation)
	}
	return h.editTooth(c, "set_status", func(s *ChartState, tooth int) error {
		return s.SetOverallStatus(tooth, OverallStatus(req.Status))
	})
}

func (h *Handler) SetNote(c echo.Context) error {
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, ErrValidation)
	}
	return h.editTooth(c, "set_note", func(s *ChartState, tooth int) error {
		return s.SetGeneralNote(tooth, req.Note)
	})
}

func (h *Handler) SetLayers(c echo.Context) error {
	var req layersRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, ErrValidation)
	}
	return h.editTooth(c, "set_layers", func(s *ChartState, tooth int) error {
		return s.SetPaintedLayers(tooth, req.Layers)
	})
}

func (h *Handler) editTooth(c echo.Context, op string, fn func(*ChartState, int) error) error {
	pid, err := patientParam(c)
	if err != nil {
		return fail(c, err)
	}
	tooth, err := toothParam(c)
	if err != nil {
		return fail(c, err)
	}
	isChild, err := dentitionParam(c)
	if err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	doc, err := h.svc.EditTooth(ctx, pid, isChild, auth.UserIDFromContext(ctx), op, func(s *ChartState) error {
		return fn(s, tooth)
	})
	if err != nil {
		return fail(c, err)
	}
	view, err := ViewTooth(doc, tooth)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, view)
}

func (h *Handler) DeleteChart(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, ErrValidation)
	}
	if err := h.viewer.DeleteChart(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil)
}

func (h *Handler) GetChart(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, ErrValidation)
	}
	doc, err := h.svc.GetChart(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, doc)
}

func (h *Handler) GetEditRef(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(c, ErrValidation)
	}
	ref, err := h.viewer.EditChartRef(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, ref)
}

func (h *Handler) ListCharts(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCharts(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	pid, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return uuid.Nil, errors.Join(ErrValidation, errors.New("invalid patient id"))
	}
	return pid, nil
}

func toothParam(c echo.Context) (int, error) {
	tooth, err := strconv.Atoi(c.Param("tooth"))
	if err != nil {
		return 0, errors.Join(ErrInvalidToothNumber, err)
	}
	return tooth, nil
}

// dentitionParam reads isChild, falling back to dentition=adult|child.
func dentitionParam(c echo.Context) (bool, error) {
	if v := c.QueryParam("isChild"); v != "" {
		isChild, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.Join(ErrValidation, errors.New("isChild must be a boolean"))
		}
		return isChild, nil
	}
	if v := c.QueryParam("dentition"); v != "" {
		d, err := ParseDentition(v)
		if err != nil {
			return false, err
		}
		return d.IsChild(), nil
	}
	return false, nil
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Response{Success: true, Data: data})
}

func fail(c echo.Context, err error) error {
	return c.JSON(StatusFor(err), Response{Success: false, Error: err.Error()})
}

// StatusFor maps chart errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConditionNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
