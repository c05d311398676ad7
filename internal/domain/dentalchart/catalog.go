package dentalchart

import "fmt"

// ConditionInfo is a catalog entry.
type ConditionInfo struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	ColorCode string `json:"colorCode"`
}

// Transparent is the color code of conditions that are not drawn.
const Transparent = "transparent"

// SurfaceConditionKey identifies a crown surface condition.
type SurfaceConditionKey string

const (
	SurfaceCaries           SurfaceConditionKey = "CARIES"
	SurfaceSilverAmalgam    SurfaceConditionKey = "SILVER_AMALGAM"
	SurfaceCompositeFilling SurfaceConditionKey = "COMPOSITE_FILLING"
	SurfaceCrownMissing     SurfaceConditionKey = "CROWN_MISSING"
	SurfaceCrown            SurfaceConditionKey = "CROWN"
	SurfaceNeedRootCanal    SurfaceConditionKey = "NEED_ROOT_CANAL"
	SurfaceRCTTreated       SurfaceConditionKey = "RCT_TREATED"
	SurfacePoorRCT          SurfaceConditionKey = "POOR_RCT"
	SurfaceProstheticCrown  SurfaceConditionKey = "PROSTHETIC_CROWN"
)

// OverallStatus is the whole-tooth state.
type OverallStatus string

const (
	StatusNormal          OverallStatus = "NORMAL"
	StatusMissingTooth    OverallStatus = "MISSING_TOOTH"
	StatusNeedExtraction  OverallStatus = "NEED_EXTRACTION"
	StatusCrown           OverallStatus = "CROWN"
	StatusProstheticCrown OverallStatus = "PROSTHETIC_CROWN"
)

// RootConditionKey identifies a root canal condition.
type RootConditionKey string

const (
	RootNormal          RootConditionKey = "NORMAL"
	RootNeedRootCanal   RootConditionKey = "NEED_ROOT_CANAL"
	RootRCTTreated      RootConditionKey = "RCT_TREATED"
	RootPoorRCT         RootConditionKey = "POOR_RCT"
	RootCrown           RootConditionKey = "CROWN"
	RootProstheticCrown RootConditionKey = "PROSTHETIC_CROWN"
)

var surfaceConditionOrder = []SurfaceConditionKey{
	SurfaceCaries, SurfaceSilverAmalgam, SurfaceCompositeFilling, SurfaceCrownMissing,
	SurfaceCrown, SurfaceNeedRootCanal, SurfaceRCTTreated, SurfacePoorRCT, SurfaceProstheticCrown,
}

var overallStatusOrder = []OverallStatus{
	StatusNormal, StatusMissingTooth, StatusNeedExtraction, StatusCrown, StatusProstheticCrown,
}

var rootConditionOrder = []RootConditionKey{
	RootNormal, RootNeedRootCanal, RootRCTTreated, RootPoorRCT, RootCrown, RootProstheticCrown,
}

// SurfaceConditionInfo looks up a surface condition.
func SurfaceConditionInfo(key SurfaceConditionKey) (ConditionInfo, error) {
	var label, color string
	switch key {
	case SurfaceCaries:
		label, color = "Caries", "#FF0000"
	case SurfaceSilverAmalgam:
		label, color = "Silver Amalgam", "#A9A9A9"
	case SurfaceCompositeFilling:
		label, color = "Composite Filling", "#1E90FF"
	case SurfaceCrownMissing:
		label, color = "Crown Missing", "#8B4513"
	case SurfaceCrown:
		label, color = "Crown", "#FFD700"
	case SurfaceNeedRootCanal:
		label, color = "Need Root Canal", "#FF1493"
	case SurfaceRCTTreated:
		label, color = "RCT Treated", "#32CD32"
	case SurfacePoorRCT:
		label, color = "Poor RCT", "#FF8C00"
	case SurfaceProstheticCrown:
		label, color = "Prosthetic Crown", "#9370DB"
	default:
		return ConditionInfo{}, fmt.Errorf("%w: surface condition %q", ErrConditionNotFound, key)
	}
	return ConditionInfo{Key: string(key), Label: label, ColorCode: color}, nil
}

// OverallStatusInfo looks up an overall tooth status.
func OverallStatusInfo(key OverallStatus) (ConditionInfo, error) {
	var label, color string
	switch key {
	case StatusNormal:
		label, color = "Normal", Transparent
	case StatusMissingTooth:
		label, color = "Missing Tooth", "#808080"
	case StatusNeedExtraction:
		label, color = "Need Extraction", "#DC143C"
	case StatusCrown:
		label, color = "Crown", "#FFD700"
	case StatusProstheticCrown:
		label, color = "Prosthetic Crown", "#9370DB"
	default:
		return ConditionInfo{}, fmt.Errorf("%w: overall status %q", ErrConditionNotFound, key)
	}
	return ConditionInfo{Key: string(key), Label: label, ColorCode: color}, nil
}

// RootConditionInfo looks up a root canal condition.
func RootConditionInfo(key RootConditionKey) (ConditionInfo, error) {
	var label, color string
	switch key {
	case RootNormal:
		label, color = "Normal", Transparent
	case RootNeedRootCanal:
		label, color = "Need Root Canal", "#FF1493"
	case RootRCTTreated:
		label, color = "RCT Treated", "#32CD32"
	case RootPoorRCT:
		label, color = "Poor RCT", "#FF8C00"
	case RootCrown:
		label, color = "Crown", "#FFD700"
	case RootProstheticCrown:
		label, color = "Prosthetic Crown", "#9370DB"
	default:
		return ConditionInfo{}, fmt.Errorf("%w: root condition %q", ErrConditionNotFound, key)
	}
	return ConditionInfo{Key: string(key), Label: label, ColorCode: color}, nil
}

// SurfaceConditions lists the surface catalog in display order.
func SurfaceConditions() []ConditionInfo {
	out := make([]ConditionInfo, 0, len(surfaceConditionOrder))
	for _, k := range surfaceConditionOrder {
		info, _ := SurfaceConditionInfo(k)
		out = append(out, info)
	}
	return out
}

// OverallStatuses lists the overall status catalog in display order.
func OverallStatuses() []ConditionInfo {
	out := make([]ConditionInfo, 0, len(overallStatusOrder))
	for _, k := range overallStatusOrder {
		info, _ := OverallStatusInfo(k)
		out = append(out, info)
	}
	return out
}

// RootConditions lists the root canal catalog in display order.
func RootConditions() []ConditionInfo {
	out := make([]ConditionInfo, 0, len(rootConditionOrder))
	for _, k := range rootConditionOrder {
		info, _ := RootConditionInfo(k)
		out = append(out, info)
	}
	return out
}

// conditionLabel resolves a painted layer's free-form condition string
// against the root catalog first, then the surface catalog.
func conditionLabel(key string) string {
	if info, err := RootConditionInfo(RootConditionKey(key)); err == nil {
		return info.Label
	}
	if info, err := SurfaceConditionInfo(SurfaceConditionKey(key)); err == nil {
		return info.Label
	}
	return key
}
