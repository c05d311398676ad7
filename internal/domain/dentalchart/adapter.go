package dentalchart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBrushSize is applied to painted layers stored without a brush size.
const DefaultBrushSize = 8

// Adapter converts between persisted chart documents and editing sessions.
// Load is the only place painted-layer defaults are applied.
type Adapter struct {
	Now   func() time.Time
	NewID func() string
}

// NewAdapter returns an adapter on the wall clock with UUID layer ids.
func NewAdapter() *Adapter {
	return &Adapter{Now: time.Now, NewID: uuid.NewString}
}

var defaultAdapter = NewAdapter()

// Load builds a ChartState from doc using the wall clock.
func Load(doc *ChartDocument) (*ChartState, error) { return defaultAdapter.Load(doc) }

// Save projects a ChartState onto a ChartDocument using the wall clock.
func Save(state *ChartState, createdBy string) (*ChartDocument, error) {
	return defaultAdapter.Save(state, createdBy)
}

// Load populates a ChartState from a persisted document. Teeth are taken
// verbatim; painted layers get defaults for absent fields. Loading an
// already well-formed document does not change any value.
func (a *Adapter) Load(doc *ChartDocument) (*ChartState, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformedDocument)
	}
	now := a.Now()
	state := &ChartState{
		ID:                         doc.ID,
		PatientID:                  doc.PatientID,
		Version:                    doc.Version,
		CreatedAt:                  doc.CreatedAt,
		UpdatedAt:                  doc.UpdatedAt,
		CreatedBy:                  doc.CreatedBy,
		ActiveTab:                  doc.ActiveTab,
		SelectedTooth:              doc.SelectedTooth,
		SelectedCondition:          doc.SelectedCondition,
		SelectedRootCanalCondition: doc.SelectedRootCanalCondition,
		BrushSettings:              doc.BrushSettings,
		ChangeHistory:              cloneHistory(doc.ChangeHistory),
		isChild:                    doc.IsChild,
		teeth:                      make([]ToothRecord, 0, len(doc.Teeth)),
		layers:                     make([]CustomRootLayers, 0, len(doc.CustomRootLayers)),
		now:                        a.Now,
	}
	for _, t := range doc.Teeth {
		state.teeth = append(state.teeth, normalizeTooth(cloneTooth(t)))
	}
	for _, entry := range doc.CustomRootLayers {
		layers := make([]PaintedLayer, len(entry.Layers))
		for i, l := range entry.Layers {
			layers[i] = a.withLayerDefaults(l, now)
		}
		entry.Layers = layers
		state.layers = append(state.layers, entry)
	}
	return state, nil
}

func (a *Adapter) withLayerDefaults(l PaintedLayer, now time.Time) PaintedLayer {
	if l.ID == "" {
		l.ID = a.NewID()
	}
	if l.Points == nil {
		l.Points = []Point{}
	} else {
		l.Points = append(make([]Point, 0, len(l.Points)), l.Points...)
	}
	if l.Coordinates == nil {
		l.Coordinates = []Coordinate{}
	} else {
		l.Coordinates = append(make([]Coordinate, 0, len(l.Coordinates)), l.Coordinates...)
	}
	if l.BrushSize <= 0 {
		l.BrushSize = DefaultBrushSize
	}
	l.IsCustomPainting = true
	if l.Position == "" {
		l.Position = RootCustom
	}
	if l.Timestamp == 0 {
		l.Timestamp = now.UnixMilli()
	}
	return l
}

// Save emits the held teeth and painted layers and regenerates the notes
// projection from every non-empty general note. Every tooth is checked
// against the catalogs and its geometry and its colors are re-derived from
// the recorded conditions. It fails with ErrValidation or
// ErrConditionNotFound when a record could not have been produced by the
// chart operations.
func (a *Adapter) Save(state *ChartState, createdBy string) (*ChartDocument, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil chart state", ErrValidation)
	}
	teeth := make([]ToothRecord, 0, len(state.teeth))
	seen := make(map[int]bool, len(state.teeth))
	for _, t := range state.teeth {
		rec, err := checkTooth(t, state.isChild)
		if err != nil {
			return nil, err
		}
		if seen[rec.ToothNumber] {
			return nil, fmt.Errorf("%w: tooth %d is recorded twice", ErrValidation, rec.ToothNumber)
		}
		seen[rec.ToothNumber] = true
		teeth = append(teeth, rec)
	}
	for _, entry := range state.layers {
		if err := ValidateTooth(entry.ToothNumber, state.isChild); err != nil {
			return nil, err
		}
	}

	now := a.Now().UTC()
	notes := make([]NoteEntry, 0)
	for _, t := range state.teeth {
		content := strings.TrimSpace(t.GeneralNote)
		if content == "" {
			continue
		}
		notes = append(notes, NoteEntry{
			ToothNumber: t.ToothNumber,
			NoteType:    NoteTypeGeneral,
			Content:     content,
			Timestamp:   now,
			CreatedBy:   createdBy,
		})
	}

	history := cloneHistory(state.ChangeHistory)
	if history == nil {
		history = []json.RawMessage{}
	}
	return &ChartDocument{
		ID:                         state.ID,
		PatientID:                  state.PatientID,
		IsChild:                    state.isChild,
		Teeth:                      teeth,
		CustomRootLayers:           state.CustomRootLayers(),
		ActiveTab:                  state.ActiveTab,
		SelectedTooth:              state.SelectedTooth,
		SelectedCondition:          state.SelectedCondition,
		SelectedRootCanalCondition: state.SelectedRootCanalCondition,
		BrushSettings:              state.BrushSettings,
		Notes:                      notes,
		ChangeHistory:              history,
		Version:                    state.Version,
		CreatedAt:                  state.CreatedAt,
		UpdatedAt:                  state.UpdatedAt,
		CreatedBy:                  state.CreatedBy,
	}, nil
}

// checkTooth returns a copy of rec with surface and root colors taken from
// the catalogs. NORMAL roots are dropped since absence already means NORMAL.
func checkTooth(rec ToothRecord, isChild bool) (ToothRecord, error) {
	if err := ValidateTooth(rec.ToothNumber, isChild); err != nil {
		return rec, err
	}
	rec = normalizeTooth(rec)
	if _, err := OverallStatusInfo(rec.OverallStatus); err != nil {
		return rec, fmt.Errorf("tooth %d: %w", rec.ToothNumber, err)
	}

	four, _ := IsFourSurfaceTooth(rec.ToothNumber, isChild)
	surfaces := make([]SurfaceCondition, 0, len(rec.Surfaces))
	for _, sc := range rec.Surfaces {
		if _, err := ParseSurfaceName(string(sc.Name)); err != nil {
			return rec, fmt.Errorf("tooth %d: %w", rec.ToothNumber, err)
		}
		if sc.Name == Occlusal && four {
			return rec, fmt.Errorf("%w: tooth %d has no occlusal surface", ErrValidation, rec.ToothNumber)
		}
		for _, prev := range surfaces {
			if prev.Name == sc.Name {
				return rec, fmt.Errorf("%w: tooth %d surface %s is recorded twice", ErrValidation, rec.ToothNumber, sc.Name)
			}
		}
		info, err := SurfaceConditionInfo(sc.Condition)
		if err != nil {
			return rec, fmt.Errorf("tooth %d: %w", rec.ToothNumber, err)
		}
		sc.Color = info.ColorCode
		surfaces = append(surfaces, sc)
	}

	roots := make([]RootCondition, 0, len(rec.Roots))
	for _, r := range rec.Roots {
		info, err := RootConditionInfo(r.Condition)
		if err != nil {
			return rec, fmt.Errorf("tooth %d: %w", rec.ToothNumber, err)
		}
		if r.Condition == RootNormal {
			continue
		}
		if ok, _ := HasRootPosition(rec.ToothNumber, isChild, r.Position); !ok {
			return rec, fmt.Errorf("%w: tooth %d has no %s root", ErrValidation, rec.ToothNumber, r.Position)
		}
		for _, prev := range roots {
			if prev.Position == r.Position {
				return rec, fmt.Errorf("%w: tooth %d root %s is recorded twice", ErrValidation, rec.ToothNumber, r.Position)
			}
		}
		r.Color = info.ColorCode
		roots = append(roots, r)
	}
	rec.Surfaces = surfaces
	rec.Roots = roots
	return rec, nil
}

func cloneHistory(h []json.RawMessage) []json.RawMessage {
	if h == nil {
		return nil
	}
	out := make([]json.RawMessage, len(h))
	for i, entry := range h {
		out[i] = append(json.RawMessage(nil), entry...)
	}
	return out
}

// ParseChartDocument decodes a stored or submitted chart document. It fails
// with ErrMalformedDocument when isChild is absent or when teeth or
// customRootLayers are present but not lists. Absent or null collections
// are read as empty lists, the form Save writes them in.
func ParseChartDocument(raw []byte) (*ChartDocument, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformedDocument)
	}
	isChild, ok := fields["isChild"]
	if !ok || isNull(isChild) {
		return nil, fmt.Errorf("%w: isChild is required", ErrMalformedDocument)
	}
	var flag bool
	if err := json.Unmarshal(isChild, &flag); err != nil {
		return nil, fmt.Errorf("%w: isChild must be a boolean", ErrMalformedDocument)
	}
	for _, key := range []string{"teeth", "customRootLayers"} {
		if v, ok := fields[key]; ok && !isNull(v) && !isList(v) {
			return nil, fmt.Errorf("%w: %s must be a list", ErrMalformedDocument, key)
		}
	}

	var doc ChartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Teeth == nil {
		doc.Teeth = []ToothRecord{}
	}
	if doc.CustomRootLayers == nil {
		doc.CustomRootLayers = []CustomRootLayers{}
	}
	if doc.ChangeHistory == nil {
		doc.ChangeHistory = []json.RawMessage{}
	}
	return &doc, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func isList(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}
