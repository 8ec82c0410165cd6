// Package annotation extracts building metadata from the free text of CAD
// text dots, such as "H=36.5m" for a height or "12F" for a floor count.
package annotation

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	// heightPattern matches "H=<number>" only when followed by the metre unit.
	heightPattern = regexp2.MustCompile(`H=[0-9]*\.?[0-9]*(?=m)`, regexp2.None)
	floorPattern  = regexp2.MustCompile(`[0-9]+F`, regexp2.None)
	numberPattern = regexp2.MustCompile(`[-+]?\d*\.\d+|\d+`, regexp2.None)
)

// Attributes holds the values parsed from a set of annotations, keyed by the
// group index the text belongs to. Groups without a match are absent.
type Attributes struct {
	Text    map[int]string
	Heights map[int]float64
	Floors  map[int]int
}

// Normalize removes the spaces CAD users put inside annotation text.
func Normalize(text string) string {
	return strings.ReplaceAll(text, " ", "")
}

// Height returns the height in metres written as "H=<n>m".
func Height(text string) (float64, bool) {
	m := firstMatch(heightPattern, Normalize(text))
	if m == "" {
		return 0, false
	}
	num := firstMatch(numberPattern, m)
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Floor returns the floor count written as "<n>F".
func Floor(text string) (int, bool) {
	m := firstMatch(floorPattern, Normalize(text))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(m, "F"))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Parse normalises every text and extracts heights and floors from it.
func Parse(texts map[int]string) Attributes {
	attrs := Attributes{
		Text:    make(map[int]string, len(texts)),
		Heights: make(map[int]float64),
		Floors:  make(map[int]int),
	}
	for idx, raw := range texts {
		text := Normalize(raw)
		attrs.Text[idx] = text
		if h, ok := Height(text); ok {
			attrs.Heights[idx] = h
		}
		if f, ok := Floor(text); ok {
			attrs.Floors[idx] = f
		}
	}
	return attrs
}

func firstMatch(re *regexp2.Regexp, s string) string {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return ""
	}
	return m.String()
}
