package mask

import "math"

// RGB is an 8-bit color triple for label display.
type RGB struct {
	R, G, B uint8
}

// ColorTable maps label IDs to display colors. Label 0 is the
// background and never draws an overlay.
type ColorTable struct {
	colors []RGB
}

// defaultColors are the seven fixed quick-select palette entries.
var defaultColors = []RGB{
	{230, 25, 75},   // red
	{60, 180, 75},   // green
	{255, 225, 25},  // yellow
	{0, 130, 200},   // blue
	{245, 130, 48},  // orange
	{145, 30, 180},  // purple
	{70, 240, 240},  // cyan
}

// DefaultColorTable returns the built-in palette: seven fixed entries
// followed by a deterministically generated extension, so labels beyond
// the quick-select slots still display distinctly.
func DefaultColorTable(size int) ColorTable {
	if size < len(defaultColors) {
		size = len(defaultColors)
	}
	colors := make([]RGB, size)
	copy(colors, defaultColors)

	// Golden-angle hue walk for the generated tail keeps consecutive
	// labels far apart in hue.
	for i := len(defaultColors); i < size; i++ {
		hue := math.Mod(float64(i)*137.508, 360)
		colors[i] = hsv(hue, 0.75, 0.95)
	}
	return ColorTable{colors: colors}
}

// NewColorTable builds a fully user-supplied table. The slice indexes
// labels starting at 1: colors[0] is the color of label 1.
func NewColorTable(colors []RGB) ColorTable {
	cp := make([]RGB, len(colors))
	copy(cp, colors)
	return ColorTable{colors: cp}
}

// Color returns the display color for a label. The second return is
// false for label 0 and for labels past the table, both of which draw
// no overlay.
func (t ColorTable) Color(label uint16) (RGB, bool) {
	if label == 0 || int(label) > len(t.colors) {
		return RGB{}, false
	}
	return t.colors[label-1], true
}

// Len returns the number of labels the table can color.
func (t ColorTable) Len() int { return len(t.colors) }

func hsv(h, s, v float64) RGB {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return RGB{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
	}
}
