// Package chart draws the close price with its VWAP overlay as a PNG.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const (
	DefaultWidth  = 1000
	DefaultHeight = 560

	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 40
	yTicks       = 5
)

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorGrid       = color.RGBA{225, 225, 225, 255}
	colorAxis       = color.RGBA{90, 90, 90, 255}
	colorText       = color.RGBA{20, 20, 20, 255}
	colorClose      = color.RGBA{30, 30, 30, 255}
	colorVWAP       = color.RGBA{30, 100, 220, 255}
	colorBand       = color.RGBA{230, 130, 20, 255}
)

// Renderer implements ports.ChartRenderer.
type Renderer struct {
	Width    int
	Height   int
	Location *time.Location
}

// NewRenderer returns a renderer with the default canvas size.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight, Location: loc}
}

type line struct {
	label  string
	values []float64
	color  color.Color
	dashed bool
}

// Render draws close, VWAP and both bands for bars. series must be aligned with bars.
func (r *Renderer) Render(ctx context.Context, symbol string, bars []*domain.Bar, series *domain.IndicatorSeries) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chart render canceled: %w: %w", ports.ErrContextCanceled, err)
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("chart needs at least 2 bars, got %d: %w", len(bars), ports.ErrInsufficientData)
	}
	if series == nil || len(series.VWAP) != len(bars) {
		return nil, fmt.Errorf("indicator series not aligned with %d bars: %w", len(bars), ports.ErrInvalidRequest)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	lines := []line{
		{label: "Close", values: closes, color: colorClose},
		{label: "VWAP", values: series.VWAP, color: colorVWAP},
	}
	if len(series.UpperBand) == len(bars) && len(series.LowerBand) == len(bars) {
		lines = append(lines,
			line{label: "Upper band", values: series.UpperBand, color: colorBand, dashed: true},
			line{label: "Lower band", values: series.LowerBand, color: colorBand, dashed: true},
		)
	}

	lo, hi := valueRange(lines)
	if math.IsInf(lo, 1) {
		return nil, fmt.Errorf("no finite values to plot: %w", ports.ErrInsufficientData)
	}
	if hi == lo {
		hi, lo = hi+0.5, lo-0.5
	}
	pad := (hi - lo) * 0.05
	lo, hi = lo-pad, hi+pad

	w, h := r.Width, r.Height
	if w <= marginLeft+marginRight || h <= marginTop+marginBottom {
		w, h = DefaultWidth, DefaultHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: colorBackground}, image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, w-marginRight, h-marginBottom)
	xAt := func(i int) int {
		return plot.Min.X + int(math.Round(float64(i)*float64(plot.Dx())/float64(len(bars)-1)))
	}
	yAt := func(v float64) int {
		return plot.Max.Y - int(math.Round((v-lo)/(hi-lo)*float64(plot.Dy())))
	}

	for t := 0; t <= yTicks; t++ {
		v := lo + (hi-lo)*float64(t)/yTicks
		y := yAt(v)
		drawLine(img, plot.Min.X, y, plot.Max.X, y, colorGrid, false)
		drawText(img, 4, y+4, "$"+domain.Money(v), colorText)
	}
	drawLine(img, plot.Min.X, plot.Min.Y, plot.Min.X, plot.Max.Y, colorAxis, false)
	drawLine(img, plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y, colorAxis, false)

	for _, l := range lines {
		for i := 1; i < len(l.values); i++ {
			a, b := l.values[i-1], l.values[i]
			if !finite(a) || !finite(b) {
				continue
			}
			drawLine(img, xAt(i-1), yAt(a), xAt(i), yAt(b), l.color, l.dashed)
		}
	}

	first := bars[0].OpenTime.In(r.Location)
	last := bars[len(bars)-1].OpenTime.In(r.Location)
	drawText(img, plot.Min.X, h-marginBottom+20, first.Format("Jan 02 15:04"), colorText)
	lastLabel := last.Format("Jan 02 15:04")
	drawText(img, plot.Max.X-textWidth(lastLabel), h-marginBottom+20, lastLabel, colorText)

	title := fmt.Sprintf("%s %s  close $%s", symbol, bars[0].Interval, domain.Money(closes[len(closes)-1]))
	drawText(img, marginLeft, 20, title, colorText)

	x := w - marginRight
	for i := len(lines) - 1; i >= 0; i-- {
		label := lines[i].label
		x -= textWidth(label) + 30
		drawLine(img, x, 16, x+18, 16, lines[i].color, lines[i].dashed)
		drawText(img, x+22, 20, label, colorText)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return buf.Bytes(), nil
}

func valueRange(lines []line) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range lines {
		for _, v := range l.values {
			if !finite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// drawLine plots a Bresenham line; dashed lines skip every other 4px run.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color, dashed bool) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for step := 0; ; step++ {
		if !dashed || (step/4)%2 == 0 {
			img.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawText(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Round()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
