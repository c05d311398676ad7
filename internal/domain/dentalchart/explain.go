package dentalchart

import (
	"fmt"
	"strings"
)

// Explain renders a tooth as one deterministic sentence group: overall
// status, surfaces, roots and painted layers, then the note.
func Explain(doc *ChartDocument, tooth int) (string, error) {
	view, err := ViewTooth(doc, tooth)
	if err != nil {
		return "", err
	}
	upper, _ := IsUpperJaw(tooth, doc.IsChild)
	jaw := "lower"
	if upper {
		jaw = "upper"
	}

	status, err := OverallStatusInfo(view.OverallStatus)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tooth %d (%s, %s jaw). Status: %s.", tooth, view.Dentition, jaw, status.Label)

	surfaces := make([]string, 0, len(view.Surfaces))
	for _, sc := range view.Surfaces {
		info, err := SurfaceConditionInfo(sc.Condition)
		if err != nil {
			return "", err
		}
		surfaces = append(surfaces, fmt.Sprintf("%s - %s", sc.Name, info.Label))
	}
	b.WriteString(" Surfaces: ")
	b.WriteString(listOrNone(surfaces))
	b.WriteString(".")

	roots := make([]string, 0, len(view.RootLayers))
	for _, rl := range view.RootLayers {
		if rl.IsCustomPainting {
			roots = append(roots, "painted - "+conditionLabel(rl.Condition))
			continue
		}
		info, err := RootConditionInfo(RootConditionKey(rl.Condition))
		if err != nil {
			return "", err
		}
		roots = append(roots, fmt.Sprintf("%s - %s", rl.Position, info.Label))
	}
	b.WriteString(" Roots: ")
	b.WriteString(listOrNone(roots))
	b.WriteString(".")

	if note := strings.TrimSpace(view.GeneralNote); note != "" {
		b.WriteString(" Note: ")
		b.WriteString(note)
		if !strings.HasSuffix(note, ".") {
			b.WriteString(".")
		}
	}
	return b.String(), nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
