package dentalchart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentix/dentix/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockChartRepo, *echo.Echo) {
	svc, repo, _ := newTestService()
	return NewHandler(svc), repo, echo.New()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response %q: %v", rec.Body.String(), err)
	}
	return env
}

func newContext(e *echo.Echo, method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func TestHandler_GetCatalogs(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", "")

	if err := h.GetCatalogs(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var cats map[string][]ConditionInfo
	json.Unmarshal(decode(t, rec).Data, &cats)
	if len(cats["surfaceConditions"]) != 9 || len(cats["overallStatuses"]) != 5 || len(cats["rootCanalConditions"]) != 6 {
		t.Errorf("unexpected catalogs %v", cats)
	}
}

func TestHandler_GetGeometry(t *testing.T) {
	h, _, e := newTestHandler()

	c, rec := newContext(e, http.MethodGet, "/?dentition=child", "", "tooth", "10")
	if err := h.GetGeometry(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var g Geometry
	json.Unmarshal(decode(t, rec).Data, &g)
	if !g.IsChild || len(g.RootPositions) != 2 || g.RootPositions[1] != RootPalatal {
		t.Errorf("unexpected geometry %+v", g)
	}

	c, rec = newContext(e, http.MethodGet, "/?isChild=true", "", "tooth", "30")
	h.GetGeometry(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for child tooth 30, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodGet, "/", "", "tooth", "abc")
	h.GetGeometry(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric tooth, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodGet, "/?isChild=maybe", "", "tooth", "3")
	h.GetGeometry(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad isChild, got %d", rec.Code)
	}
}

func TestHandler_LoadChart_Missing(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", "", "patientId", uuid.New().String())

	if err := h.LoadChart(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	env := decode(t, rec)
	if !env.Success || string(env.Data) != "null" {
		t.Errorf("expected success with null data, got %s", rec.Body.String())
	}
}

func TestHandler_LoadChart_InvalidPatient(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := newContext(e, http.MethodGet, "/", "", "patientId", "not-a-uuid")
	h.LoadChart(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_SaveChart(t *testing.T) {
	h, _, e := newTestHandler()
	pid := uuid.New().String()

	body := `{"isChild":false,"teeth":[{"toothNumber":3,"overallStatus":"CROWN","surfaces":[],"roots":[],"generalNote":"crowned 2025"}]}`
	c, rec := newContext(e, http.MethodPost, "/", body, "patientId", pid)
	if err := h.SaveChart(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved ChartDocument
	json.Unmarshal(decode(t, rec).Data, &saved)
	if saved.Version != 1 || len(saved.Notes) != 1 {
		t.Errorf("unexpected saved chart %+v", saved)
	}

	c, rec = newContext(e, http.MethodPost, "/", body, "patientId", pid)
	h.SaveChart(c)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 on update, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodGet, "/", "", "patientId", pid)
	h.LoadChart(c)
	var loaded ChartDocument
	json.Unmarshal(decode(t, rec).Data, &loaded)
	if loaded.Version != 2 {
		t.Errorf("expected version 2, got %d", loaded.Version)
	}
}

func TestHandler_SaveChart_IsChildFromQuery(t *testing.T) {
	h, repo, e := newTestHandler()
	pid := uuid.New()

	c, rec := newContext(e, http.MethodPost, "/?isChild=true", `{"teeth":[]}`, "patientId", pid.String())
	h.SaveChart(c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := repo.GetByPatient(context.Background(), pid, true); err != nil {
		t.Errorf("expected child chart: %v", err)
	}
}

func TestHandler_SaveChart_Malformed(t *testing.T) {
	h, _, e := newTestHandler()
	tests := []string{
		`{"teeth":[]}`,
		`{"isChild":false,"teeth":"all"}`,
		`not json`,
		`{"isChild":true,"teeth":[{"toothNumber":31}]}`,
	}
	for _, body := range tests {
		c, rec := newContext(e, http.MethodPost, "/", body, "patientId", uuid.New().String())
		h.SaveChart(c)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
		if decode(t, rec).Success {
			t.Errorf("body %s: expected success=false", body)
		}
	}
}

func TestHandler_SaveChart_RejectsImpossibleTeeth(t *testing.T) {
	h, repo, e := newTestHandler()
	tooth8 := func(fields string) string {
		return `{"isChild":false,"teeth":[{"toothNumber":8,` + fields + `}]}`
	}
	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown status", tooth8(`"overallStatus":"BOGUS"`), http.StatusUnprocessableEntity},
		{"occlusal on incisor", tooth8(`"surfaces":[{"name":"Occlusal","condition":"CARIES","color":"#FF0000"}]`), http.StatusBadRequest},
		{"unknown surface", tooth8(`"surfaces":[{"name":"Top","condition":"CARIES"}]`), http.StatusBadRequest},
		{"unknown surface condition", tooth8(`"surfaces":[{"name":"Buccal","condition":"NOT_A_CONDITION"}]`), http.StatusUnprocessableEntity},
		{"duplicate surface", tooth8(`"surfaces":[{"name":"Buccal","condition":"CARIES"},{"name":"Buccal","condition":"CROWN"}]`), http.StatusBadRequest},
		{"root position missing on tooth", tooth8(`"roots":[{"position":"PALATAL","condition":"RCT_TREATED"}]`), http.StatusBadRequest},
		{"surface condition on root", tooth8(`"roots":[{"position":"FULL","condition":"CARIES"}]`), http.StatusUnprocessableEntity},
		{"duplicate tooth", `{"isChild":false,"teeth":[{"toothNumber":8},{"toothNumber":8}]}`, http.StatusBadRequest},
		{"everything wrong", tooth8(`"overallStatus":"BOGUS","surfaces":[{"name":"Occlusal","condition":"NOT_A_CONDITION","color":"#000"}],"roots":[{"position":"PALATAL","condition":"CARIES","color":"#fff"}]`), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/", tt.body, "patientId", uuid.New().String())
			if err := h.SaveChart(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if decode(t, rec).Success {
				t.Error("expected success=false")
			}
		})
	}
	if repo.creates != 0 || repo.updates != 0 {
		t.Errorf("rejected charts must not be stored, got %d creates and %d updates", repo.creates, repo.updates)
	}
}

func TestHandler_SaveChart_RederivesColors(t *testing.T) {
	h, repo, e := newTestHandler()
	pid := uuid.New()

	body := `{"isChild":false,"teeth":[{"toothNumber":3,
		"surfaces":[{"name":"Buccal","condition":"CARIES","color":"#000000"}],
		"roots":[{"position":"PALATAL","condition":"RCT_TREATED","color":"#ffffff"},{"position":"MESIOBUCCAL","condition":"NORMAL"}]}]}`
	c, rec := newContext(e, http.MethodPost, "/", body, "patientId", pid.String())
	h.SaveChart(c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	doc, err := repo.GetByPatient(context.Background(), pid, false)
	if err != nil {
		t.Fatalf("expected stored chart: %v", err)
	}
	rec3, _ := doc.Tooth(3)
	if rec3.OverallStatus != StatusNormal {
		t.Errorf("expected NORMAL status, got %q", rec3.OverallStatus)
	}
	if len(rec3.Surfaces) != 1 || rec3.Surfaces[0].Color != "#FF0000" {
		t.Errorf("expected caries color from the catalog, got %+v", rec3.Surfaces)
	}
	if len(rec3.Roots) != 1 || rec3.Roots[0].Position != RootPalatal || rec3.Roots[0].Color != "#32CD32" {
		t.Errorf("expected one RCT_TREATED root with catalog color, got %+v", rec3.Roots)
	}

	c, rec = newContext(e, http.MethodGet, "/", "", "patientId", pid.String(), "tooth", "3")
	h.ViewTooth(c)
	if rec.Code != http.StatusOK {
		t.Errorf("expected stored tooth to be viewable, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ToggleSurface(t *testing.T) {
	h, _, e := newTestHandler()
	pid := uuid.New().String()

	c, rec := newContext(e, http.MethodPost, "/", `{"surface":"Occlusal","condition":"CARIES"}`, "patientId", pid, "tooth", "3")
	if err := h.ToggleSurface(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view ToothView
	json.Unmarshal(decode(t, rec).Data, &view)
	if len(view.Surfaces) != 1 || view.Surfaces[0].Color != "#FF0000" {
		t.Errorf("unexpected view %+v", view)
	}

	c, rec = newContext(e, http.MethodPost, "/", `{"surface":"Occlusal","condition":"CARIES"}`, "patientId", pid, "tooth", "8")
	h.ToggleSurface(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for occlusal on incisor, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodPost, "/", `{"surface":"Buccal","condition":"TARTAR"}`, "patientId", pid, "tooth", "3")
	h.ToggleSurface(c)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unknown condition, got %d", rec.Code)
	}
}

func TestHandler_RootsStatusNoteLayers(t *testing.T) {
	h, repo, e := newTestHandler()
	pid := uuid.New()
	p := pid.String()

	c, rec := newContext(e, http.MethodPut, "/", `{"position":"MESIAL","condition":"RCT_TREATED"}`, "patientId", p, "tooth", "19")
	h.SetRoot(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetRoot: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	c, rec = newContext(e, http.MethodPut, "/", `{"status":"CROWN"}`, "patientId", p, "tooth", "19")
	h.SetStatus(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetStatus: expected 200, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodPut, "/", `{"note":"monitor"}`, "patientId", p, "tooth", "19")
	h.SetNote(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetNote: expected 200, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodPut, "/", `{"layers":[{"id":"x","condition":"POOR_RCT","points":[[1,2]]}]}`, "patientId", p, "tooth", "19")
	h.SetLayers(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetLayers: expected 200, got %d", rec.Code)
	}
	var view ToothView
	json.Unmarshal(decode(t, rec).Data, &view)
	if len(view.RootLayers) != 2 || view.OverallStatus != StatusCrown || view.GeneralNote != "monitor" {
		t.Errorf("unexpected view %+v", view)
	}

	c, rec = newContext(e, http.MethodDelete, "/", "", "patientId", p, "tooth", "19", "position", "MESIAL")
	h.RemoveRoot(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("RemoveRoot: expected 200, got %d", rec.Code)
	}

	doc, err := repo.GetByPatient(context.Background(), pid, false)
	if err != nil {
		t.Fatalf("expected stored chart: %v", err)
	}
	rec19, _ := doc.Tooth(19)
	if len(rec19.Roots) != 0 || doc.Version != 5 {
		t.Errorf("unexpected stored tooth %+v (version %d)", rec19, doc.Version)
	}
	if len(doc.Notes) != 1 || doc.Notes[0].Content != "monitor" {
		t.Errorf("unexpected notes %+v", doc.Notes)
	}

	c, rec = newContext(e, http.MethodPut, "/", `{"position":"PALATAL","condition":"CROWN"}`, "patientId", p, "tooth", "19")
	h.SetRoot(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for PALATAL on a lower molar, got %d", rec.Code)
	}
}

func TestHandler_SetLayers_ReturnsStoredDefaults(t *testing.T) {
	h, repo, e := newTestHandler()
	pid := uuid.New()

	c, rec := newContext(e, http.MethodPut, "/", `{"layers":[{"condition":"POOR_RCT","color":"#FF8C00"}]}`, "patientId", pid.String(), "tooth", "19")
	if err := h.SetLayers(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view ToothView
	json.Unmarshal(decode(t, rec).Data, &view)
	if len(view.RootLayers) != 1 || view.RootLayers[0].Layer == nil {
		t.Fatalf("expected one painted layer, got %+v", view.RootLayers)
	}
	returned := *view.RootLayers[0].Layer

	doc, err := repo.GetByPatient(context.Background(), pid, false)
	if err != nil {
		t.Fatalf("expected stored chart: %v", err)
	}
	stored := doc.Layers(19)
	if len(stored) != 1 {
		t.Fatalf("expected one stored layer, got %d", len(stored))
	}
	for name, l := range map[string]PaintedLayer{"response": returned, "stored": stored[0]} {
		if l.ID == "" || l.BrushSize != DefaultBrushSize || l.Position != RootCustom || !l.IsCustomPainting {
			t.Errorf("%s layer missing defaults: %+v", name, l)
		}
		if l.Timestamp != fixedNow.UnixMilli() {
			t.Errorf("%s layer timestamp %d, want %d", name, l.Timestamp, fixedNow.UnixMilli())
		}
	}
	if returned.ID != stored[0].ID {
		t.Errorf("response layer %q differs from stored layer %q", returned.ID, stored[0].ID)
	}
}

func TestHandler_ViewPatientCharts(t *testing.T) {
	h, _, e := newTestHandler()
	pid := uuid.New().String()

	c, rec := newContext(e, http.MethodGet, "/", "", "patientId", pid)
	if err := h.ViewPatientCharts(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(decode(t, rec).Data, &body)
	if rec.Code != http.StatusOK || body["active"] != "" || body["adult"] != nil {
		t.Errorf("expected empty selection, got %d %v", rec.Code, body)
	}

	c, _ = newContext(e, http.MethodPost, "/", `{"isChild":true}`, "patientId", pid)
	h.SaveChart(c)

	c, rec = newContext(e, http.MethodGet, "/", "", "patientId", pid)
	h.ViewPatientCharts(c)
	json.Unmarshal(decode(t, rec).Data, &body)
	if body["active"] != "child" || body["child"] == nil {
		t.Errorf("expected child selection, got %v", body)
	}

	c, rec = newContext(e, http.MethodGet, "/?dentition=elder", "", "patientId", pid)
	h.ViewPatientCharts(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown dentition, got %d", rec.Code)
	}
}

func TestHandler_ViewTooth(t *testing.T) {
	h, _, e := newTestHandler()
	pid := uuid.New().String()

	c, rec := newContext(e, http.MethodGet, "/", "", "patientId", pid, "tooth", "3")
	h.ViewTooth(c)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without charts, got %d", rec.Code)
	}

	svg := "M10 20"
	body := fmt.Sprintf(`{"isChild":false,"customRootLayers":[{"toothNumber":3,"layers":[{"id":"a","condition":"CROWN","svgData":%q}]}]}`, svg)
	c, _ = newContext(e, http.MethodPost, "/", body, "patientId", pid)
	h.SaveChart(c)

	c, rec = newContext(e, http.MethodGet, "/", "", "patientId", pid, "tooth", "3")
	if err := h.ViewTooth(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Tooth         ToothView      `json:"tooth"`
		Explanation   string         `json:"explanation"`
		DisplayLayers []PaintedLayer `json:"displayLayers"`
	}
	json.Unmarshal(decode(t, rec).Data, &out)
	if !strings.Contains(out.Explanation, "painted - Crown") {
		t.Errorf("unexpected explanation %q", out.Explanation)
	}
	if len(out.DisplayLayers) != 1 || *out.DisplayLayers[0].SVGData != "M10 280" {
		t.Errorf("expected mirrored display layer, got %+v", out.DisplayLayers)
	}
	if *out.Tooth.CustomLayers[0].SVGData != svg {
		t.Error("stored layer should be returned untransformed")
	}

	c, rec = newContext(e, http.MethodGet, "/?dentition=child", "", "patientId", pid, "tooth", "3")
	h.ViewTooth(c)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing child chart, got %d", rec.Code)
	}
}

func TestHandler_GetChartEditRefDelete(t *testing.T) {
	h, _, e := newTestHandler()
	pid := uuid.New().String()

	c, rec := newContext(e, http.MethodPost, "/", `{"isChild":true}`, "patientId", pid)
	h.SaveChart(c)
	var saved ChartDocument
	json.Unmarshal(decode(t, rec).Data, &saved)
	id := saved.ID.String()

	c, rec = newContext(e, http.MethodGet, "/", "", "id", id)
	h.GetChart(c)
	if rec.Code != http.StatusOK {
		t.Errorf("GetChart: expected 200, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodGet, "/", "", "id", id)
	h.GetEditRef(c)
	var ref ChartRef
	json.Unmarshal(decode(t, rec).Data, &ref)
	if ref.ChartID != saved.ID || ref.Dentition != DentitionChild {
		t.Errorf("unexpected ref %+v", ref)
	}

	c, rec = newContext(e, http.MethodDelete, "/", "", "id", id)
	h.DeleteChart(c)
	if rec.Code != http.StatusOK {
		t.Errorf("DeleteChart: expected 200, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodDelete, "/", "", "id", id)
	h.DeleteChart(c)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodGet, "/", "", "id", "bad")
	h.GetEditRef(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestHandler_ListCharts(t *testing.T) {
	h, _, e := newTestHandler()
	for i := 0; i < 3; i++ {
		c, _ := newContext(e, http.MethodPost, "/", `{"isChild":false}`, "patientId", uuid.New().String())
		h.SaveChart(c)
	}

	c, rec := newContext(e, http.MethodGet, "/api/v1/dental-charts?limit=2", "")
	if err := h.ListCharts(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"hasMore"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if !page.Success || page.Total != 3 || len(page.Data) != 2 || !page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestHandler_RoutesRequireRoles(t *testing.T) {
	h, _, _ := newTestHandler()
	withRoles := func(roles ...string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
		}
	}

	tests := []struct {
		roles  []string
		method string
		path   string
		want   int
	}{
		{[]string{auth.RoleAssistant}, http.MethodGet, "/api/v1/dental-charts/catalogs", http.StatusOK},
		{[]string{auth.RoleAssistant}, http.MethodDelete, "/api/v1/dental-charts/" + uuid.NewString(), http.StatusForbidden},
		{[]string{auth.RoleDentist}, http.MethodGet, "/api/v1/dental-charts", http.StatusForbidden},
		{[]string{auth.RoleAdmin}, http.MethodGet, "/api/v1/dental-charts", http.StatusOK},
		{nil, http.MethodGet, "/api/v1/dental-charts/catalogs", http.StatusForbidden},
	}
	for _, tt := range tests {
		e := echo.New()
		api := e.Group("/api/v1", withRoles(tt.roles...))
		h.RegisterRoutes(api)

		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%v %s %s: expected %d, got %d", tt.roles, tt.method, tt.path, tt.want, rec.Code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrConditionNotFound, http.StatusUnprocessableEntity},
		{ErrInvalidToothNumber, http.StatusBadRequest},
		{ErrMalformedDocument, http.StatusBadRequest},
		{transportErr("get", errors.New("eof")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
