package dentalchart

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SurfaceCondition is a condition recorded on one crown surface. Color is
// denormalized from the surface catalog.
type SurfaceCondition struct {
	Name      SurfaceName         `json:"name"`
	Condition SurfaceConditionKey `json:"condition"`
	Color     string              `json:"color"`
}

// RootCondition is a condition recorded at one root position. Absence of an
// entry means NORMAL.
type RootCondition struct {
	Position  RootPosition     `json:"position"`
	Condition RootConditionKey `json:"condition"`
	Color     string           `json:"color"`
}

// Point is one [x, y] pair of a painted stroke.
type Point [2]float64

// Coordinate is a timestamped stroke sample.
type Coordinate struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// PaintedLayer is a freehand annotation on a tooth's root area. Timestamps
// are unix milliseconds.
type PaintedLayer struct {
	ID               string       `json:"id"`
	Points           []Point      `json:"points"`
	Color            string       `json:"color"`
	Condition        string       `json:"condition"`
	BrushSize        int          `json:"brushSize"`
	SVGData          *string      `json:"svgData"`
	Coordinates      []Coordinate `json:"coordinates"`
	IsCustomPainting bool         `json:"isCustomPainting"`
	Position         RootPosition `json:"position"`
	Timestamp        int64        `json:"timestamp"`
}

// ToothRecord aggregates everything recorded on one tooth.
type ToothRecord struct {
	ToothNumber   int                `json:"toothNumber"`
	OverallStatus OverallStatus      `json:"overallStatus"`
	Surfaces      []SurfaceCondition `json:"surfaces"`
	Roots         []RootCondition    `json:"roots"`
	GeneralNote   string             `json:"generalNote"`
}

// CustomRootLayers holds the painted layers of one tooth.
type CustomRootLayers struct {
	ToothNumber int            `json:"toothNumber"`
	Layers      []PaintedLayer `json:"layers"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// BrushSettings is the painting tool state of the editor.
type BrushSettings struct {
	BrushSize     int    `json:"brushSize"`
	SelectedColor string `json:"selectedColor"`
}

// NoteType classifies a NoteEntry.
const NoteTypeGeneral = "GENERAL"

// NoteEntry is the save-time projection of a tooth's general note.
type NoteEntry struct {
	ToothNumber int       `json:"toothNumber"`
	NoteType    string    `json:"noteType"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedBy   string    `json:"createdBy"`
}

// ChartDocument is the persisted unit: one dentition of one patient.
type ChartDocument struct {
	ID                         uuid.UUID          `json:"id"`
	PatientID                  uuid.UUID          `json:"patientId"`
	IsChild                    bool               `json:"isChild"`
	Teeth                      []ToothRecord      `json:"teeth"`
	CustomRootLayers           []CustomRootLayers `json:"customRootLayers"`
	ActiveTab                  string             `json:"activeTab"`
	SelectedTooth              int                `json:"selectedTooth,omitempty"`
	SelectedCondition          string             `json:"selectedCondition"`
	SelectedRootCanalCondition string             `json:"selectedRootCanalCondition"`
	BrushSettings              BrushSettings      `json:"brushSettings"`
	Notes                      []NoteEntry        `json:"notes"`
	ChangeHistory              []json.RawMessage  `json:"changeHistory"`
	Version                    int                `json:"version"`
	CreatedAt                  time.Time          `json:"createdAt"`
	UpdatedAt                  time.Time          `json:"updatedAt"`
	CreatedBy                  string             `json:"createdBy"`
}

// Dentition returns the document's dentition.
func (d *ChartDocument) Dentition() Dentition { return DentitionFor(d.IsChild) }

// Tooth returns the record for a tooth, if materialized.
func (d *ChartDocument) Tooth(tooth int) (ToothRecord, bool) {
	for _, t := range d.Teeth {
		if t.ToothNumber == tooth {
			return t, true
		}
	}
	return ToothRecord{}, false
}

// Layers returns the painted layers of a tooth.
func (d *ChartDocument) Layers(tooth int) []PaintedLayer {
	for _, l := range d.CustomRootLayers {
		if l.ToothNumber == tooth {
			return l.Layers
		}
	}
	return nil
}

// RootLayer is one entry of the merged root view: either a discrete root
// condition or a freehand painted layer.
type RootLayer struct {
	Position         RootPosition  `json:"position"`
	Condition        string        `json:"condition"`
	Color            string        `json:"color"`
	IsCustomPainting bool          `json:"isCustomPainting"`
	Layer            *PaintedLayer `json:"layer,omitempty"`
}

// mergeRootLayers concatenates discrete positions first, then freehand layers.
func mergeRootLayers(roots []RootCondition, layers []PaintedLayer) []RootLayer {
	out := make([]RootLayer, 0, len(roots)+len(layers))
	for _, r := range roots {
		out = append(out, RootLayer{Position: r.Position, Condition: string(r.Condition), Color: r.Color})
	}
	for i := range layers {
		l := layers[i]
		out = append(out, RootLayer{
			Position:         l.Position,
			Condition:        l.Condition,
			Color:            l.Color,
			IsCustomPainting: true,
			Layer:            &l,
		})
	}
	return out
}
