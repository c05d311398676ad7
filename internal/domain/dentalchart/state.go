package dentalchart

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoTooth is the selectedTooth value when nothing is selected.
const NoTooth = 0

// ChartState is the editable state of one chart session. It is owned by a
// single request or client session and is not safe for concurrent use.
//
// Every mutation replaces the affected collections instead of editing them
// in place, so slices handed out by earlier queries never change.
type ChartState struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string

	ActiveTab                  string
	SelectedTooth              int
	SelectedCondition          string
	SelectedRootCanalCondition string
	BrushSettings              BrushSettings
	ChangeHistory              []json.RawMessage

	isChild bool
	teeth   []ToothRecord
	layers  []CustomRootLayers
	now     func() time.Time
}

// NewChartState starts an empty chart for a patient.
func NewChartState(patientID uuid.UUID, isChild bool) *ChartState {
	return &ChartState{
		PatientID:     patientID,
		isChild:       isChild,
		BrushSettings: BrushSettings{BrushSize: DefaultBrushSize},
		teeth:         []ToothRecord{},
		layers:        []CustomRootLayers{},
		now:           time.Now,
	}
}

// SetClock replaces the time source used for layer timestamps.
func (s *ChartState) SetClock(now func() time.Time) { s.now = now }

func (s *ChartState) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// IsChild reports the dentition of the chart.
func (s *ChartState) IsChild() bool { return s.isChild }

// ToggleSurfaceCondition sets cond on a surface, replaces a different
// condition, or clears the surface when cond is already recorded there.
func (s *ChartState) ToggleSurfaceCondition(tooth int, surface SurfaceName, cond SurfaceConditionKey) error {
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	if _, err := ParseSurfaceName(string(surface)); err != nil {
		return err
	}
	if surface == Occlusal {
		if four, _ := IsFourSurfaceTooth(tooth, s.isChild); four {
			return fmt.Errorf("%w: tooth %d has no occlusal surface", ErrValidation, tooth)
		}
	}
	info, err := SurfaceConditionInfo(cond)
	if err != nil {
		return err
	}

	s.updateTooth(tooth, func(rec ToothRecord) ToothRecord {
		surfaces := make([]SurfaceCondition, 0, len(rec.Surfaces)+1)
		found := false
		for _, sc := range rec.Surfaces {
			if sc.Name != surface {
				surfaces = append(surfaces, sc)
				continue
			}
			found = true
			if sc.Condition == cond {
				continue
			}
			surfaces = append(surfaces, SurfaceCondition{Name: surface, Condition: cond, Color: info.ColorCode})
		}
		if !found {
			surfaces = append(surfaces, SurfaceCondition{Name: surface, Condition: cond, Color: info.ColorCode})
		}
		rec.Surfaces = surfaces
		return rec
	})
	return nil
}

// SetRootCondition upserts the condition at a root position. NORMAL removes
// the entry and never materializes a tooth record.
func (s *ChartState) SetRootCondition(tooth int, pos RootPosition, cond RootConditionKey) error {
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	info, err := RootConditionInfo(cond)
	if err != nil {
		return err
	}
	if cond == RootNormal {
		s.removeRoot(tooth, pos)
		return nil
	}
	ok, _ := HasRootPosition(tooth, s.isChild, pos)
	if !ok {
		return fmt.Errorf("%w: tooth %d has no %s root", ErrValidation, tooth, pos)
	}

	s.updateTooth(tooth, func(rec ToothRecord) ToothRecord {
		entry := RootCondition{Position: pos, Condition: cond, Color: info.ColorCode}
		roots := make([]RootCondition, 0, len(rec.Roots)+1)
		replaced := false
		for _, r := range rec.Roots {
			if r.Position == pos {
				if !replaced {
					roots = append(roots, entry)
					replaced = true
				}
				continue
			}
			roots = append(roots, r)
		}
		if !replaced {
			roots = append(roots, entry)
		}
		rec.Roots = roots
		return rec
	})
	return nil
}

// RemoveRootCondition drops any condition at a root position.
func (s *ChartState) RemoveRootCondition(tooth int, pos RootPosition) error {
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	s.removeRoot(tooth, pos)
	return nil
}

func (s *ChartState) removeRoot(tooth int, pos RootPosition) {
	idx := s.indexOf(tooth)
	if idx < 0 {
		return
	}
	rec := s.teeth[idx]
	roots := make([]RootCondition, 0, len(rec.Roots))
	for _, r := range rec.Roots {
		if r.Position != pos {
			roots = append(roots, r)
		}
	}
	rec.Roots = roots
	s.replaceTooth(idx, rec)
}

// SetOverallStatus records the whole-tooth status. It is a no-op when
// tooth is NoTooth.
func (s *ChartState) SetOverallStatus(tooth int, status OverallStatus) error {
	if tooth == NoTooth {
		return nil
	}
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	if _, err := OverallStatusInfo(status); err != nil {
		return err
	}
	s.updateTooth(tooth, func(rec ToothRecord) ToothRecord {
		rec.OverallStatus = status
		return rec
	})
	return nil
}

// SetGeneralNote records the free-text note of a tooth. The record is
// materialized even for an empty note. No-op for NoTooth.
func (s *ChartState) SetGeneralNote(tooth int, text string) error {
	if tooth == NoTooth {
		return nil
	}
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	s.updateTooth(tooth, func(rec ToothRecord) ToothRecord {
		rec.GeneralNote = text
		return rec
	})
	return nil
}

// SetPaintedLayers replaces the painted layers of a tooth. An empty list
// removes the tooth from the painted-layer collection.
func (s *ChartState) SetPaintedLayers(tooth int, layers []PaintedLayer) error {
	if err := ValidateTooth(tooth, s.isChild); err != nil {
		return err
	}
	next := make([]CustomRootLayers, 0, len(s.layers)+1)
	found := false
	for _, entry := range s.layers {
		if entry.ToothNumber != tooth {
			next = append(next, entry)
			continue
		}
		found = true
		if len(layers) > 0 {
			next = append(next, CustomRootLayers{ToothNumber: tooth, Layers: cloneLayers(layers), LastUpdated: s.clock().UTC()})
		}
	}
	if !found && len(layers) > 0 {
		next = append(next, CustomRootLayers{ToothNumber: tooth, Layers: cloneLayers(layers), LastUpdated: s.clock().UTC()})
	}
	s.layers = next
	return nil
}

// Tooth returns a copy of the record for a tooth, if materialized.
func (s *ChartState) Tooth(tooth int) (ToothRecord, bool) {
	idx := s.indexOf(tooth)
	if idx < 0 {
		return ToothRecord{}, false
	}
	return cloneTooth(s.teeth[idx]), true
}

// SurfaceCondition returns the condition recorded on a surface.
func (s *ChartState) SurfaceCondition(tooth int, surface SurfaceName) (SurfaceConditionKey, bool) {
	rec, ok := s.Tooth(tooth)
	if !ok {
		return "", false
	}
	for _, sc := range rec.Surfaces {
		if sc.Name == surface {
			return sc.Condition, true
		}
	}
	return "", false
}

// OverallStatus returns the status of a materialized tooth.
func (s *ChartState) OverallStatus(tooth int) (OverallStatus, bool) {
	rec, ok := s.Tooth(tooth)
	if !ok {
		return "", false
	}
	return rec.OverallStatus, true
}

// RootConditions returns the discrete root conditions of a tooth.
func (s *ChartState) RootConditions(tooth int) []RootCondition {
	rec, ok := s.Tooth(tooth)
	if !ok {
		return []RootCondition{}
	}
	return rec.Roots
}

// PaintedLayers returns the freehand layers of a tooth.
func (s *ChartState) PaintedLayers(tooth int) []PaintedLayer {
	for _, entry := range s.layers {
		if entry.ToothNumber == tooth {
			return cloneLayers(entry.Layers)
		}
	}
	return []PaintedLayer{}
}

// AllRootLayers returns discrete root conditions followed by painted layers.
func (s *ChartState) AllRootLayers(tooth int) []RootLayer {
	return mergeRootLayers(s.RootConditions(tooth), s.PaintedLayers(tooth))
}

// Teeth returns a copy of every materialized tooth record.
func (s *ChartState) Teeth() []ToothRecord {
	out := make([]ToothRecord, len(s.teeth))
	for i, t := range s.teeth {
		out[i] = cloneTooth(t)
	}
	return out
}

// CustomRootLayers returns a copy of the painted-layer collection.
func (s *ChartState) CustomRootLayers() []CustomRootLayers {
	out := make([]CustomRootLayers, len(s.layers))
	for i, entry := range s.layers {
		entry.Layers = cloneLayers(entry.Layers)
		out[i] = entry
	}
	return out
}

func (s *ChartState) indexOf(tooth int) int {
	for i, t := range s.teeth {
		if t.ToothNumber == tooth {
			return i
		}
	}
	return -1
}

// updateTooth applies fn to the tooth's record, materializing it with
// defaults first when absent.
func (s *ChartState) updateTooth(tooth int, fn func(ToothRecord) ToothRecord) {
	idx := s.indexOf(tooth)
	if idx < 0 {
		rec := fn(newToothRecord(tooth))
		next := make([]ToothRecord, len(s.teeth), len(s.teeth)+1)
		copy(next, s.teeth)
		s.teeth = append(next, normalizeTooth(rec))
		return
	}
	s.replaceTooth(idx, fn(cloneTooth(s.teeth[idx])))
}

func (s *ChartState) replaceTooth(idx int, rec ToothRecord) {
	next := make([]ToothRecord, len(s.teeth))
	copy(next, s.teeth)
	next[idx] = normalizeTooth(rec)
	s.teeth = next
}

func newToothRecord(tooth int) ToothRecord {
	return ToothRecord{
		ToothNumber:   tooth,
		OverallStatus: StatusNormal,
		Surfaces:      []SurfaceCondition{},
		Roots:         []RootCondition{},
		GeneralNote:   "",
	}
}

func normalizeTooth(rec ToothRecord) ToothRecord {
	if rec.OverallStatus == "" {
		rec.OverallStatus = StatusNormal
	}
	if rec.Surfaces == nil {
		rec.Surfaces = []SurfaceCondition{}
	}
	if rec.Roots == nil {
		rec.Roots = []RootCondition{}
	}
	return rec
}

func cloneTooth(rec ToothRecord) ToothRecord {
	rec.Surfaces = append(make([]SurfaceCondition, 0, len(rec.Surfaces)), rec.Surfaces...)
	rec.Roots = append(make([]RootCondition, 0, len(rec.Roots)), rec.Roots...)
	return rec
}

func cloneLayers(layers []PaintedLayer) []PaintedLayer {
	out := make([]PaintedLayer, len(layers))
	for i, l := range layers {
		if l.Points != nil {
			points := make([]Point, len(l.Points))
			copy(points, l.Points)
			l.Points = points
		}
		if l.Coordinates != nil {
			coords := make([]Coordinate, len(l.Coordinates))
			copy(coords, l.Coordinates)
			l.Coordinates = coords
		}
		out[i] = l
	}
	return out
}
