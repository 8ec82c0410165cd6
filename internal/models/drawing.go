package models

// Raw object kinds produced by the CAD exporter.
const (
	ObjectKindCurve   = "curve"
	ObjectKindPoint   = "point"
	ObjectKindTextDot = "textdot"
)

// Drawing is the exported content of one CAD document: its group and layer
// tables plus every drawable object with the raw attributes the reader needs.
type Drawing struct {
	Name    string      `json:"name" validate:"required"`
	Groups  []Group     `json:"groups" validate:"dive"`
	Layers  []Layer     `json:"layers" validate:"dive"`
	Objects []RawObject `json:"objects" validate:"dive"`
}

// Group is one entry of the document group table.
type Group struct {
	Name  string `json:"name"`
	Index int    `json:"index" validate:"gte=0"`
}

// Layer is one entry of the document layer table.
type Layer struct {
	Name  string `json:"name" validate:"required"`
	Index int    `json:"index" validate:"gte=0"`
}

// RawObject is a drawable CAD object before conversion.
// Groups lists group indices innermost first, as the CAD attributes report them.
// Linear is set by the exporter for straight two-point curves.
type RawObject struct {
	ID     string       `json:"id" validate:"omitempty,uuid"`
	Kind   string       `json:"kind" validate:"required,oneof=curve point textdot"`
	Text   string       `json:"text,omitempty"`
	Groups []int        `json:"groups" validate:"dive,gte=0"`
	Points [][2]float64 `json:"points" validate:"required,min=1"`
	Layer  int          `json:"layer" validate:"gte=0"`
	Closed bool         `json:"closed,omitempty"`
	Linear bool         `json:"linear,omitempty"`
}
