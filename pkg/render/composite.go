package render

import (
	"image"
	"image/color"
)

// Composite alpha-blends the mask overlay onto the intensity raster
// and returns a standard image for the presentation layer (or a file
// writer) to consume. With an empty overlay this is just the intensity
// raster expanded to RGBA.
func (f *Frame) Composite() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			var r, g, b float64
			if f.Channels == 3 {
				r = float64(f.Pixels[i*3])
				g = float64(f.Pixels[i*3+1])
				b = float64(f.Pixels[i*3+2])
			} else {
				v := float64(f.Pixels[i])
				r, g, b = v, v, v
			}
			if !f.OverlayEmpty {
				a := f.Alpha[i]
				r = r*(1-a) + float64(f.Overlay[i*3])*a
				g = g*(1-a) + float64(f.Overlay[i*3+1])*a
				b = b*(1-a) + float64(f.Overlay[i*3+2])*a
			}
			img.SetRGBA(x, y, color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255})
		}
	}
	return img
}
