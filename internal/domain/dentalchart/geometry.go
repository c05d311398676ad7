package dentalchart

import "fmt"

// Dentition selects the adult (permanent) or child (primary) tooth set.
type Dentition string

const (
	DentitionAdult Dentition = "adult"
	DentitionChild Dentition = "child"
)

// DentitionFor maps the persisted isChild flag to a Dentition.
func DentitionFor(isChild bool) Dentition {
	if isChild {
		return DentitionChild
	}
	return DentitionAdult
}

// ParseDentition accepts "adult" or "child".
func ParseDentition(s string) (Dentition, error) {
	switch Dentition(s) {
	case DentitionAdult, DentitionChild:
		return Dentition(s), nil
	}
	return "", fmt.Errorf("%w: dentition must be %q or %q, got %q", ErrValidation, DentitionAdult, DentitionChild, s)
}

// IsChild reports whether d is the primary dentition.
func (d Dentition) IsChild() bool { return d == DentitionChild }

const (
	adultTeeth = 32
	childTeeth = 24
)

func maxTooth(isChild bool) int {
	if isChild {
		return childTeeth
	}
	return adultTeeth
}

// SurfaceName is a clinical face of the crown.
type SurfaceName string

const (
	Buccal   SurfaceName = "Buccal"
	Lingual  SurfaceName = "Lingual"
	Mesial   SurfaceName = "Mesial"
	Distal   SurfaceName = "Distal"
	Occlusal SurfaceName = "Occlusal"
)

// ParseSurfaceName validates a surface name.
func ParseSurfaceName(s string) (SurfaceName, error) {
	switch SurfaceName(s) {
	case Buccal, Lingual, Mesial, Distal, Occlusal:
		return SurfaceName(s), nil
	}
	return "", fmt.Errorf("%w: unknown surface %q", ErrValidation, s)
}

// RootPosition is an anatomical root location.
type RootPosition string

const (
	RootFull        RootPosition = "FULL"
	RootBuccal      RootPosition = "BUCCAL"
	RootPalatal     RootPosition = "PALATAL"
	RootMesial      RootPosition = "MESIAL"
	RootDistal      RootPosition = "DISTAL"
	RootMesiobuccal RootPosition = "MESIOBUCCAL"
	RootDistobuccal RootPosition = "DISTOBUCCAL"

	// RootCustom is the position of freehand painted layers.
	RootCustom RootPosition = "CUSTOM"
)

var (
	singleRoot      = []RootPosition{RootFull}
	doubleRootUpper = []RootPosition{RootBuccal, RootPalatal}
	doubleRootLower = []RootPosition{RootMesial, RootDistal}
	tripleRoot      = []RootPosition{RootMesiobuccal, RootDistobuccal, RootPalatal}
)

type toothSet map[int]struct{}

func newToothSet(teeth ...int) toothSet {
	s := make(toothSet, len(teeth))
	for _, t := range teeth {
		s[t] = struct{}{}
	}
	return s
}

func (s toothSet) has(t int) bool {
	_, ok := s[t]
	return ok
}

// Adult teeth, Universal Numbering System.
var (
	adultDoubleRootUpper = newToothSet(5, 12)
	adultTripleRoot      = newToothSet(1, 2, 3, 14, 15, 16)
	adultDoubleRootLower = newToothSet(17, 18, 19, 30, 31, 32)
	adultFourSurface     = newToothSet(6, 7, 8, 9, 10, 11, 22, 23, 24, 25, 26, 27)
)

// Child teeth. The four-surface list follows the chart editor; the viewer
// also counted 12-15, see DESIGN.md.
var (
	childTripleRoot  = newToothSet(1, 2, 3)
	childDoubleRoot  = newToothSet(10, 11, 12, 13, 14, 15, 22, 23, 24)
	childFourSurface = newToothSet(4, 5, 6, 7, 8, 9, 16, 17, 18, 19, 20, 21)
)

// ValidateTooth fails with ErrInvalidToothNumber when tooth is outside the dentition.
func ValidateTooth(tooth int, isChild bool) error {
	if tooth < 1 || tooth > maxTooth(isChild) {
		return invalidTooth(tooth, isChild)
	}
	return nil
}

// ToothNumbers enumerates every tooth of a dentition in numbering order.
func ToothNumbers(isChild bool) []int {
	n := maxTooth(isChild)
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// RootPositions returns the root positions that exist on a tooth. The
// returned slice is a fresh copy.
func RootPositions(tooth int, isChild bool) ([]RootPosition, error) {
	if err := ValidateTooth(tooth, isChild); err != nil {
		return nil, err
	}
	var positions []RootPosition
	if isChild {
		switch {
		case childTripleRoot.has(tooth):
			positions = tripleRoot
		case childDoubleRoot.has(tooth):
			positions = doubleRootUpper
			if !childUpper(tooth) {
				positions = doubleRootLower
			}
		default:
			positions = singleRoot
		}
	} else {
		switch {
		case adultTripleRoot.has(tooth):
			positions = tripleRoot
		case adultDoubleRootUpper.has(tooth):
			positions = doubleRootUpper
		case adultDoubleRootLower.has(tooth):
			positions = doubleRootLower
		default:
			positions = singleRoot
		}
	}
	return append([]RootPosition(nil), positions...), nil
}

// HasRootPosition reports whether pos is anatomically valid on the tooth.
func HasRootPosition(tooth int, isChild bool, pos RootPosition) (bool, error) {
	positions, err := RootPositions(tooth, isChild)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if p == pos {
			return true, nil
		}
	}
	return false, nil
}

// IsFourSurfaceTooth reports whether the tooth is anterior (no Occlusal surface).
func IsFourSurfaceTooth(tooth int, isChild bool) (bool, error) {
	if err := ValidateTooth(tooth, isChild); err != nil {
		return false, err
	}
	if isChild {
		return childFourSurface.has(tooth), nil
	}
	return adultFourSurface.has(tooth), nil
}

// IsUpperJaw reports whether the tooth sits in the maxilla.
func IsUpperJaw(tooth int, isChild bool) (bool, error) {
	if err := ValidateTooth(tooth, isChild); err != nil {
		return false, err
	}
	if isChild {
		return childUpper(tooth), nil
	}
	return tooth <= adultTeeth/2, nil
}

func childUpper(tooth int) bool { return tooth <= childTeeth/2 }

// Surfaces lists the crown surfaces of a tooth.
func Surfaces(tooth int, isChild bool) ([]SurfaceName, error) {
	four, err := IsFourSurfaceTooth(tooth, isChild)
	if err != nil {
		return nil, err
	}
	if four {
		return []SurfaceName{Buccal, Lingual, Mesial, Distal}, nil
	}
	return []SurfaceName{Buccal, Lingual, Mesial, Distal, Occlusal}, nil
}

// Geometry bundles the resolver's answers for one tooth.
type Geometry struct {
	ToothNumber   int            `json:"toothNumber"`
	IsChild       bool           `json:"isChild"`
	UpperJaw      bool           `json:"upperJaw"`
	FourSurface   bool           `json:"fourSurface"`
	Surfaces      []SurfaceName  `json:"surfaces"`
	RootPositions []RootPosition `json:"rootPositions"`
}

// ResolveGeometry evaluates every resolver function for a tooth.
func ResolveGeometry(tooth int, isChild bool) (*Geometry, error) {
	roots, err := RootPositions(tooth, isChild)
	if err != nil {
		return nil, err
	}
	surfaces, _ := Surfaces(tooth, isChild)
	upper, _ := IsUpperJaw(tooth, isChild)
	return &Geometry{
		ToothNumber:   tooth,
		IsChild:       isChild,
		UpperJaw:      upper,
		FourSurface:   len(surfaces) == 4,
		Surfaces:      surfaces,
		RootPositions: roots,
	}, nil
}
