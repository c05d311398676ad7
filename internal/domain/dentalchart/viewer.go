package dentalchart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ChartSource is the storage collaborator of the read-only viewer.
type ChartSource interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*ChartDocument, error)
	Get(ctx context.Context, id uuid.UUID) (*ChartDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatientCharts holds the adult and child charts of one patient. Either may be nil.
type PatientCharts struct {
	PatientID uuid.UUID      `json:"patientId"`
	Adult     *ChartDocument `json:"adult"`
	Child     *ChartDocument `json:"child"`
}

// Empty reports whether the patient has no chart at all.
func (p *PatientCharts) Empty() bool { return p.Adult == nil && p.Child == nil }

// DefaultSelection is adult when an adult chart exists, else child when a
// child chart exists, else empty.
func (p *PatientCharts) DefaultSelection() Dentition {
	switch {
	case p.Adult != nil:
		return DentitionAdult
	case p.Child != nil:
		return DentitionChild
	}
	return ""
}

// Active returns the chart for a selection, or nil.
func (p *PatientCharts) Active(sel Dentition) *ChartDocument {
	switch sel {
	case DentitionAdult:
		return p.Adult
	case DentitionChild:
		return p.Child
	}
	return nil
}

// ChartRef carries what an editor needs to open an existing chart.
type ChartRef struct {
	ChartID   uuid.UUID `json:"chartId"`
	PatientID uuid.UUID `json:"patientId"`
	IsChild   bool      `json:"isChild"`
	Dentition Dentition `json:"dentition"`
}

// Viewer is the read side over a patient's charts.
type Viewer struct {
	src ChartSource
}

func NewViewer(src ChartSource) *Viewer {
	return &Viewer{src: src}
}

// LoadPatientCharts partitions a patient's documents by dentition. When the
// patient has no chart the returned value is empty and err wraps
// ErrNotFound; callers treat that as the "create chart" state.
func (v *Viewer) LoadPatientCharts(ctx context.Context, patientID uuid.UUID) (*PatientCharts, error) {
	charts := &PatientCharts{PatientID: patientID}
	docs, err := v.src.ListByPatient(ctx, patientID)
	if err != nil {
		return charts, err
	}
	for _, d := range docs {
		if d == nil {
			continue
		}
		if d.IsChild {
			charts.Child = newer(charts.Child, d)
		} else {
			charts.Adult = newer(charts.Adult, d)
		}
	}
	if charts.Empty() {
		return charts, fmt.Errorf("%w: patient %s has no charts", ErrNotFound, patientID)
	}
	return charts, nil
}

func newer(cur, cand *ChartDocument) *ChartDocument {
	if cur == nil || cand.UpdatedAt.After(cur.UpdatedAt) {
		return cand
	}
	return cur
}

// DeleteChart forwards a delete to the storage collaborator.
func (v *Viewer) DeleteChart(ctx context.Context, id uuid.UUID) error {
	return v.src.Delete(ctx, id)
}

// EditChartRef resolves the id and dentition needed to route an edit.
func (v *Viewer) EditChartRef(ctx context.Context, id uuid.UUID) (*ChartRef, error) {
	doc, err := v.src.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ChartRef{ChartID: doc.ID, PatientID: doc.PatientID, IsChild: doc.IsChild, Dentition: doc.Dentition()}, nil
}

// ToothView is the combined per-tooth lookup of the active chart.
type ToothView struct {
	ToothNumber   int                `json:"toothNumber"`
	Dentition     Dentition          `json:"dentition"`
	OverallStatus OverallStatus      `json:"overallStatus"`
	Surfaces      []SurfaceCondition `json:"surfaces"`
	Roots         []RootCondition    `json:"roots"`
	CustomLayers  []PaintedLayer     `json:"customLayers"`
	RootLayers    []RootLayer        `json:"rootLayers"`
	GeneralNote   string             `json:"generalNote"`
}

// ViewTooth merges a tooth's record with its painted layers.
func ViewTooth(doc *ChartDocument, tooth int) (*ToothView, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no active chart", ErrNotFound)
	}
	if err := ValidateTooth(tooth, doc.IsChild); err != nil {
		return nil, err
	}
	rec, ok := doc.Tooth(tooth)
	if !ok {
		rec = newToothRecord(tooth)
	}
	rec = normalizeTooth(cloneTooth(rec))
	layers := cloneLayers(doc.Layers(tooth))
	return &ToothView{
		ToothNumber:   tooth,
		Dentition:     doc.Dentition(),
		OverallStatus: rec.OverallStatus,
		Surfaces:      rec.Surfaces,
		Roots:         rec.Roots,
		CustomLayers:  layers,
		RootLayers:    mergeRootLayers(rec.Roots, layers),
		GeneralNote:   rec.GeneralNote,
	}, nil
}

// svgViewHeight is the height of the root drawing area.
const svgViewHeight = 300

// DisplayLayers returns copies of layers ready for drawing: upper-jaw
// paths are mirrored vertically. Stored layers are never transformed.
func DisplayLayers(tooth int, isChild bool, layers []PaintedLayer) ([]PaintedLayer, error) {
	upper, err := IsUpperJaw(tooth, isChild)
	if err != nil {
		return nil, err
	}
	out := cloneLayers(layers)
	if !upper {
		return out, nil
	}
	for i := range out {
		if out[i].SVGData == nil {
			continue
		}
		mirrored := MirrorSVGPath(*out[i].SVGData, svgViewHeight)
		out[i].SVGData = &mirrored
	}
	return out, nil
}
