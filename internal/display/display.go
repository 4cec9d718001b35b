// Package display formats indicator values for people: abbreviated large
// counts and one-decimal percentages. Nothing here feeds back into the model.
package display

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"

	"github.com/talgya/earthsim/internal/ecosystem"
	"github.com/talgya/earthsim/internal/locale"
)

// maxGrouped is the largest mantissa rendered with digit grouping.
const maxGrouped = 1e15

// Formatter renders numbers in one language's conventions.
type Formatter struct {
	labels   locale.Labels
	decimals string // humanize.FormatFloat pattern with two decimals
	single   string // humanize.FormatFloat pattern with one decimal
}

// New returns a Formatter for the supported language closest to tag.
func New(tag language.Tag) Formatter {
	l := locale.New(tag)
	if l.Tag() == language.Russian {
		return Formatter{labels: l, decimals: "# ###,##", single: "# ###,#"}
	}
	return Formatter{labels: l, decimals: "#,###.##", single: "#,###.#"}
}

// Count abbreviates c to billions or millions with two decimals; smaller
// counts are rounded and digit-grouped.
func (f Formatter) Count(c float64) string {
	switch {
	case c >= maxGrouped*1e9:
		// humanize.FormatFloat overflows int64 past this point.
		return strconv.FormatFloat(c/1e9, 'e', 2, 64) + " " + f.labels.Text(locale.KeyBillion)
	case c >= 1e9:
		return humanize.FormatFloat(f.decimals, c/1e9) + " " + f.labels.Text(locale.KeyBillion)
	case c >= 1e6:
		return humanize.FormatFloat(f.decimals, c/1e6) + " " + f.labels.Text(locale.KeyMillion)
	case f.labels.Tag() == language.Russian:
		return humanize.FormatInteger("# ###.", int(math.Round(c)))
	default:
		return humanize.Comma(int64(math.Round(c)))
	}
}

// Percent renders p with one decimal and a percent sign.
func (f Formatter) Percent(p float64) string {
	return humanize.FormatFloat(f.single, p) + "%"
}

// Delta renders a signed change with the same rules as Count or Percent.
func (f Formatter) Delta(field string, d float64) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	switch field {
	case ecosystem.FieldVegetation, ecosystem.FieldWater:
		return sign + f.Percent(d)
	default:
		return sign + f.Count(d)
	}
}

// Indicators is the display rendering of a snapshot.
type Indicators struct {
	Population string `json:"population"`
	Vegetation string `json:"vegetation"`
	Water      string `json:"water"`
	Deaths     string `json:"deaths"`
	LastEvent  string `json:"last_event,omitempty"`
}

// Render formats every indicator of s.
func (f Formatter) Render(s ecosystem.Snapshot) Indicators {
	return Indicators{
		Population: f.Count(s.Population),
		Vegetation: f.Percent(s.VegetationPct),
		Water:      f.Percent(s.WaterPct),
		Deaths:     f.Count(s.Deaths),
		LastEvent:  s.LastEventLabel,
	}
}

// Changes formats a changes record field by field.
func (f Formatter) Changes(c ecosystem.Changes) map[string]string {
	out := make(map[string]string, len(c))
	for field, d := range c {
		out[field] = f.Delta(field, d)
	}
	return out
}
