package display

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	on  = color.Gray{Y: 255}
	off = color.Gray{Y: 0}
)

// Canvas is a monochrome drawing surface the size of the OLED
type Canvas struct {
	img  *image.Gray
	face font.Face
}

// NewCanvas creates a blank canvas
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:  image.NewGray(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

// Bounds returns the canvas rectangle
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Clear turns every pixel off
func (c *Canvas) Clear() {
	c.Fill(c.img.Bounds(), false)
}

// Fill sets every pixel in r
func (c *Canvas) Fill(r image.Rectangle, lit bool) {
	col := off
	if lit {
		col = on
	}
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

// Box draws the outline of r
func (c *Canvas) Box(r image.Rectangle) {
	r = r.Canon()
	for x := r.Min.X; x < r.Max.X; x++ {
		c.img.SetGray(x, r.Min.Y, on)
		c.img.SetGray(x, r.Max.Y-1, on)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		c.img.SetGray(r.Min.X, y, on)
		c.img.SetGray(r.Max.X-1, y, on)
	}
}

// Text draws s with its baseline at y
func (c *Canvas) Text(x, y int, s string, lit bool) {
	src := image.White
	if !lit {
		src = image.Black
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  src,
		Face: c.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// Label fills r and draws s centred in it, knocked out of the fill
func (c *Canvas) Label(r image.Rectangle, s string) {
	c.Fill(r, true)

	s = c.Fit(s, r.Dx()-4)
	w := font.MeasureString(c.face, s).Ceil()
	m := c.face.Metrics()
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	c.Text(x, y, s, false)
}

// Wrap draws s word-wrapped inside r and returns the number of lines drawn.
// Lines that would fall below r are dropped.
func (c *Canvas) Wrap(r image.Rectangle, s string) int {
	m := c.face.Metrics()
	lineHeight := m.Height.Ceil()
	y := r.Min.Y + m.Ascent.Ceil()
	maxWidth := r.Dx() - 4

	lines := 0
	for _, line := range c.lines(s, maxWidth) {
		if y+m.Descent.Ceil() > r.Max.Y {
			break
		}
		c.Text(r.Min.X+2, y, line, true)
		y += lineHeight
		lines++
	}
	return lines
}

// lines breaks s into lines no wider than width. A word wider than width
// gets a line of its own, cut to fit.
func (c *Canvas) lines(s string, width int) []string {
	var out []string
	line := ""
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if font.MeasureString(c.face, candidate).Ceil() <= width {
			line = candidate
			continue
		}
		if line != "" {
			out = append(out, line)
		}
		line = c.Fit(word, width)
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}

// Fit shortens s with a trailing ".." until it is at most width pixels wide
func (c *Canvas) Fit(s string, width int) string {
	if font.MeasureString(c.face, s).Ceil() <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if t := string(r) + ".."; font.MeasureString(c.face, t).Ceil() <= width {
			return t
		}
	}
	return ""
}

// Pack returns the canvas as 1-bit rows, 8 pixels per byte, MSB first
func (c *Canvas) Pack() []byte {
	b := c.img.Bounds()
	stride := (b.Dx() + 7) / 8
	data := make([]byte, stride*b.Dy())

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if c.img.GrayAt(x, y).Y > 127 {
				data[y*stride+x/8] |= 1 << (7 - x%8)
			}
		}
	}
	return data
}
