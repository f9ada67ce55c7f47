package wheel

import (
	"fmt"
	"math"
)

const (
	losingTextColor  = "#ffffff"
	winningTextColor = "#0a0e17"
	crowdedSegments  = 8
	labelRadius      = 32.0
)

// Segment describes how one entry is drawn on a 100x100 SVG viewbox.
type Segment struct {
	Index      int     `json:"index"`
	PrizeID    uint64  `json:"prize_id"`
	Name       string  `json:"name"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	TextColor  string  `json:"text_color"`
	FontSize   float64 `json:"font_size"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Path       string  `json:"path"`
	LabelX     float64 `json:"label_x"`
	LabelY     float64 `json:"label_y"`
	LabelAngle float64 `json:"label_angle"`
}

// Layout computes the segment geometry for entries in display order.
func Layout(entries []Entry) []Segment {
	n := len(entries)
	if n == 0 {
		return nil
	}
	s := SegmentAngle(n)
	largeArc := 0
	if s > 180 {
		largeArc = 1
	}
	fontSize := 3.2
	if n > crowdedSegments {
		fontSize = 2.8
	}

	out := make([]Segment, 0, n)
	for i, e := range entries {
		start := float64(i) * s
		end := float64(i+1) * s
		x1, y1 := polar(50, start)
		x2, y2 := polar(50, end)
		mid := start + s/2
		lx, ly := polar(labelRadius, mid)

		var path string
		if n == 1 {
			// A single arc from a point back to itself renders nothing.
			path = "M 50 50 m -50 0 a 50 50 0 1 0 100 0 a 50 50 0 1 0 -100 0 Z"
		} else {
			path = fmt.Sprintf("M 50 50 L %s %s A 50 50 0 %d 1 %s %s Z", fmtCoord(x1), fmtCoord(y1), largeArc, fmtCoord(x2), fmtCoord(y2))
		}

		textColor := winningTextColor
		if e.IsLosing {
			textColor = losingTextColor
		}
		out = append(out, Segment{
			Index:      i,
			PrizeID:    e.ID,
			Name:       e.Name,
			Label:      Label(e.Name, n),
			Color:      e.Color,
			TextColor:  textColor,
			FontSize:   fontSize,
			StartAngle: start,
			EndAngle:   end,
			Path:       path,
			LabelX:     round3(lx),
			LabelY:     round3(ly),
			LabelAngle: mid,
		})
	}
	return out
}

// Label shortens a prize name so it fits a segment on a wheel of n segments.
func Label(name string, n int) string {
	limit, keep := 10, 8
	if n > crowdedSegments {
		limit, keep = 8, 6
	}
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:keep]) + "..."
}

// polar maps an angle measured clockwise from 12 o'clock to viewbox coordinates.
func polar(radius, angle float64) (float64, float64) {
	rad := (angle - 90) * math.Pi / 180
	return 50 + radius*math.Cos(rad), 50 + radius*math.Sin(rad)
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}

func fmtCoord(v float64) string {
	return fmt.Sprintf("%.3f", round3(v))
}
