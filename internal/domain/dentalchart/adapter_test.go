package dentalchart

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func testAdapter() *Adapter {
	n := 0
	return &Adapter{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return "layer-" + string(rune('0'+n))
		},
	}
}

func TestAdapterLoad_LayerDefaults(t *testing.T) {
	doc := &ChartDocument{
		PatientID: uuid.New(),
		CustomRootLayers: []CustomRootLayers{{
			ToothNumber: 3,
			Layers:      []PaintedLayer{{Color: "#FF8C00", Condition: "POOR_RCT"}},
		}},
	}

	state, err := testAdapter().Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	layers := state.PaintedLayers(3)
	if len(layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(layers))
	}
	l := layers[0]
	if l.ID != "layer-1" {
		t.Errorf("expected generated id, got %q", l.ID)
	}
	if l.BrushSize != DefaultBrushSize {
		t.Errorf("expected brush size %d, got %d", DefaultBrushSize, l.BrushSize)
	}
	if !l.IsCustomPainting {
		t.Error("expected IsCustomPainting")
	}
	if l.Position != RootCustom {
		t.Errorf("expected CUSTOM position, got %s", l.Position)
	}
	if l.Timestamp != fixedNow.UnixMilli() {
		t.Errorf("expected timestamp %d, got %d", fixedNow.UnixMilli(), l.Timestamp)
	}
	if l.Points == nil || l.Coordinates == nil {
		t.Error("expected empty point and coordinate lists")
	}
}

func TestAdapterLoad_KeepsPresentFields(t *testing.T) {
	svg := "M0 0 L10 10"
	layer := PaintedLayer{
		ID:               "keep",
		Points:           []Point{{1, 1}},
		BrushSize:        3,
		SVGData:          &svg,
		Coordinates:      []Coordinate{{X: 1, Y: 1, Timestamp: 5}},
		IsCustomPainting: true,
		Position:         RootMesial,
		Timestamp:        42,
	}
	doc := &ChartDocument{CustomRootLayers: []CustomRootLayers{{ToothNumber: 19, Layers: []PaintedLayer{layer}}}}

	state, err := testAdapter().Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := state.PaintedLayers(19)[0]; !reflect.DeepEqual(got, layer) {
		t.Errorf("well-formed layer changed on load:\n got %+v\nwant %+v", got, layer)
	}
}

func TestAdapterLoad_Nil(t *testing.T) {
	if _, err := testAdapter().Load(nil); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestAdapter_RoundTripIsStable(t *testing.T) {
	a := testAdapter()
	s := NewChartState(uuid.New(), false)
	s.ToggleSurfaceCondition(3, Occlusal, SurfaceCaries)
	s.SetRootCondition(3, RootPalatal, RootRCTTreated)
	s.SetOverallStatus(8, StatusCrown)
	s.SetGeneralNote(8, "  chipped incisal edge ")
	s.SetPaintedLayers(19, []PaintedLayer{{Condition: "POOR_RCT"}})

	first, err := a.Save(s, "dr-lee")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := a.Load(first)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := a.Save(reloaded, "dr-lee")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	third, _ := a.Save(mustLoad(t, a, second), "dr-lee")

	if !reflect.DeepEqual(second, third) {
		t.Errorf("load/save is not idempotent:\n%+v\n%+v", second, third)
	}
	if !reflect.DeepEqual(first.Teeth, second.Teeth) {
		t.Errorf("teeth changed across round trip")
	}
}

func fullChart() *ChartDocument {
	svg := "M10 20 L12 24"
	created := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	return &ChartDocument{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Teeth: []ToothRecord{
			{
				ToothNumber:   3,
				OverallStatus: StatusCrown,
				Surfaces: []SurfaceCondition{
					{Name: Occlusal, Condition: SurfaceCaries, Color: "#FF0000"},
					{Name: Mesial, Condition: SurfaceCompositeFilling, Color: "#1E90FF"},
				},
				Roots:       []RootCondition{{Position: RootPalatal, Condition: RootRCTTreated, Color: "#32CD32"}},
				GeneralNote: "  crowned 2025 ",
			},
			{ToothNumber: 8, OverallStatus: StatusNormal, Surfaces: []SurfaceCondition{}, Roots: []RootCondition{}},
			{
				ToothNumber:   19,
				OverallStatus: StatusMissingTooth,
				Surfaces:      []SurfaceCondition{},
				Roots:         []RootCondition{{Position: RootMesial, Condition: RootPoorRCT, Color: "#FF8C00"}},
				GeneralNote:   "monitor",
			},
		},
		CustomRootLayers: []CustomRootLayers{{
			ToothNumber: 19,
			LastUpdated: created,
			Layers: []PaintedLayer{{
				ID:               "stroke-1",
				Points:           []Point{{1, 2}, {3, 4}},
				Color:            "#FF8C00",
				Condition:        "POOR_RCT",
				BrushSize:        5,
				SVGData:          &svg,
				Coordinates:      []Coordinate{{X: 1, Y: 2, Timestamp: 1767000000000}},
				IsCustomPainting: true,
				Position:         RootCustom,
				Timestamp:        1767000000000,
			}},
		}},
		ActiveTab:                  "roots",
		SelectedTooth:              19,
		SelectedCondition:          "CARIES",
		SelectedRootCanalCondition: "POOR_RCT",
		BrushSettings:              BrushSettings{BrushSize: 5, SelectedColor: "#FF8C00"},
		Notes:                      []NoteEntry{{ToothNumber: 1, NoteType: NoteTypeGeneral, Content: "stale"}},
		ChangeHistory:              []json.RawMessage{json.RawMessage(`{"op":"toggle_surface","tooth":3}`)},
		Version:                    7,
		CreatedAt:                  created,
		UpdatedAt:                  created.Add(time.Hour),
		CreatedBy:                  "dr-lee",
	}
}

func TestAdapter_SaveLoadReproducesDocument(t *testing.T) {
	a := testAdapter()
	doc := fullChart()

	out, err := a.Save(mustLoad(t, a, doc), "dr-kim")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	wantNotes := []NoteEntry{
		{ToothNumber: 3, NoteType: NoteTypeGeneral, Content: "crowned 2025", Timestamp: fixedNow, CreatedBy: "dr-kim"},
		{ToothNumber: 19, NoteType: NoteTypeGeneral, Content: "monitor", Timestamp: fixedNow, CreatedBy: "dr-kim"},
	}
	if !reflect.DeepEqual(out.Notes, wantNotes) {
		t.Errorf("notes:\n got %+v\nwant %+v", out.Notes, wantNotes)
	}

	out.Notes, doc.Notes = nil, nil
	if !reflect.DeepEqual(out, doc) {
		t.Errorf("document changed across load and save:\n got %+v\nwant %+v", out, doc)
	}
}

func TestAdapter_ParsedDocumentRoundTrip(t *testing.T) {
	tests := []string{
		`{"isChild":false,"teeth":[]}`,
		`{"isChild":true,"changeHistory":null}`,
		`{"isChild":false,"changeHistory":[{"op":"set_status"}]}`,
	}
	for _, raw := range tests {
		a := testAdapter()
		doc, err := ParseChartDocument([]byte(raw))
		if err != nil {
			t.Fatalf("%s: parse: %v", raw, err)
		}
		out, err := a.Save(mustLoad(t, a, doc), "x")
		if err != nil {
			t.Fatalf("%s: save: %v", raw, err)
		}
		want, _ := json.Marshal(doc.ChangeHistory)
		got, _ := json.Marshal(out.ChangeHistory)
		if string(got) != string(want) {
			t.Errorf("%s: change history %s, want %s", raw, got, want)
		}

		encoded, _ := json.Marshal(out)
		again, err := ParseChartDocument(encoded)
		if err != nil {
			t.Fatalf("%s: reparse: %v", raw, err)
		}
		if !reflect.DeepEqual(again.ChangeHistory, out.ChangeHistory) || !reflect.DeepEqual(again.Teeth, out.Teeth) {
			t.Errorf("%s: stored form does not read back the same", raw)
		}
	}
}

func mustLoad(t *testing.T, a *Adapter, doc *ChartDocument) *ChartState {
	t.Helper()
	s, err := a.Load(doc)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestAdapterSave_Notes(t *testing.T) {
	s := NewChartState(uuid.New(), false)
	s.SetGeneralNote(8, "  chipped  ")
	s.SetGeneralNote(9, "   ")
	s.SetGeneralNote(10, "")

	doc, err := testAdapter().Save(s, "dr-lee")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Teeth) != 3 {
		t.Errorf("expected 3 teeth, got %d", len(doc.Teeth))
	}
	if len(doc.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(doc.Notes))
	}
	n := doc.Notes[0]
	if n.ToothNumber != 8 || n.Content != "chipped" || n.NoteType != NoteTypeGeneral || n.CreatedBy != "dr-lee" {
		t.Errorf("unexpected note %+v", n)
	}
	if !n.Timestamp.Equal(fixedNow) {
		t.Errorf("expected note timestamp %v, got %v", fixedNow, n.Timestamp)
	}
	if doc.ChangeHistory == nil {
		t.Error("expected empty change history list")
	}
}

func TestAdapterSave_RejectsForeignTooth(t *testing.T) {
	doc := &ChartDocument{IsChild: true, Teeth: []ToothRecord{{ToothNumber: 30, OverallStatus: StatusNormal}}}
	state, err := testAdapter().Load(doc)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := testAdapter().Save(state, "x"); !errors.Is(err, ErrInvalidToothNumber) {
		t.Errorf("expected ErrInvalidToothNumber, got %v", err)
	}
	if _, err := testAdapter().Save(nil, "x"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for nil state, got %v", err)
	}
}

func TestAdapterSave_PreservesEditorState(t *testing.T) {
	doc := &ChartDocument{
		ID:                         uuid.New(),
		ActiveTab:                  "roots",
		SelectedTooth:              14,
		SelectedCondition:          "CARIES",
		SelectedRootCanalCondition: "POOR_RCT",
		BrushSettings:              BrushSettings{BrushSize: 12, SelectedColor: "#000000"},
		ChangeHistory:              []json.RawMessage{json.RawMessage(`{"op":"x"}`)},
		Version:                    4,
	}
	out, err := testAdapter().Save(mustLoad(t, testAdapter(), doc), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != doc.ID || out.ActiveTab != "roots" || out.SelectedTooth != 14 || out.Version != 4 {
		t.Errorf("editor state lost: %+v", out)
	}
	if out.BrushSettings != doc.BrushSettings {
		t.Errorf("brush settings changed: %+v", out.BrushSettings)
	}
	if len(out.ChangeHistory) != 1 || string(out.ChangeHistory[0]) != `{"op":"x"}` {
		t.Errorf("change history changed: %s", out.ChangeHistory)
	}
}

func TestParseChartDocument(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		teeth   int
	}{
		{"minimal", `{"isChild":false}`, false, 0},
		{"null teeth", `{"isChild":true,"teeth":null}`, false, 0},
		{"with teeth", `{"isChild":false,"teeth":[{"toothNumber":3,"overallStatus":"CROWN"}]}`, false, 1},
		{"missing isChild", `{"teeth":[]}`, true, 0},
		{"null isChild", `{"isChild":null}`, true, 0},
		{"string isChild", `{"isChild":"yes"}`, true, 0},
		{"teeth object", `{"isChild":false,"teeth":{"3":{}}}`, true, 0},
		{"layers string", `{"isChild":false,"customRootLayers":"none"}`, true, 0},
		{"not json", `{isChild:false`, true, 0},
		{"null document", `null`, true, 0},
		{"array document", `[]`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseChartDocument([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedDocument) {
					t.Fatalf("expected ErrMalformedDocument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Teeth == nil || doc.CustomRootLayers == nil || doc.ChangeHistory == nil {
				t.Error("expected non-nil collections")
			}
			if len(doc.Teeth) != tt.teeth {
				t.Errorf("expected %d teeth, got %d", tt.teeth, len(doc.Teeth))
			}
		})
	}
}

func TestPackageLoadSave(t *testing.T) {
	s := NewChartState(uuid.New(), true)
	s.SetOverallStatus(1, StatusNeedExtraction)
	doc, err := Save(s, "x")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := Load(doc)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !back.IsChild() {
		t.Error("dentition lost")
	}
	if st, _ := back.OverallStatus(1); st != StatusNeedExtraction {
		t.Errorf("expected NEED_EXTRACTION, got %q", st)
	}
}
