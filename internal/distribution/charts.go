package distribution

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Theme is the immutable style configuration handed to the renderer at
// construction time rather than mutated as ambient process state.
type Theme struct {
	Width   int
	Height  int
	Palette []drawing.Color
}

// DefaultTheme returns the stock palette at the given canvas size.
func DefaultTheme(width, height int) Theme {
	return Theme{
		Width:  width,
		Height: height,
		Palette: []drawing.Color{
			drawing.ColorFromHex("4c72b0"),
			drawing.ColorFromHex("dd8452"),
			drawing.ColorFromHex("55a868"),
			drawing.ColorFromHex("c44e52"),
			drawing.ColorFromHex("8172b3"),
		},
	}
}

// Renderer draws a distribution summary as bar and pie charts.
type Renderer struct {
	theme Theme
	caser cases.Caser
}

// NewRenderer creates a Renderer with the given theme.
func NewRenderer(theme Theme) *Renderer {
	return &Renderer{
		theme: theme,
		caser: cases.Title(language.English),
	}
}

// BarPNG renders the summary as a labeled bar chart. Each bar carries its
// value name and numeric percentage.
func (r *Renderer) BarPNG(shares []Share, title string) ([]byte, error) {
	if len(shares) == 0 {
		return nil, eris.New("distribution: no shares to chart")
	}

	bars := make([]chart.Value, len(shares))
	for i, s := range shares {
		bars[i] = chart.Value{
			Value: s.Percent,
			Label: fmt.Sprintf("%s %.1f%%", r.caser.String(s.Value), s.Percent),
			Style: chart.Style{FillColor: r.color(i), StrokeColor: r.color(i)},
		}
	}

	bc := chart.BarChart{
		Title:    title,
		Width:    r.theme.Width,
		Height:   r.theme.Height,
		BarWidth: 60,
		Bars:     bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, eris.Wrap(err, "distribution: render bar chart")
	}
	return buf.Bytes(), nil
}

// PiePNG renders the summary as a labeled pie chart. Each slice carries its
// percentage to one decimal place.
func (r *Renderer) PiePNG(shares []Share, title string) ([]byte, error) {
	if len(shares) == 0 {
		return nil, eris.New("distribution: no shares to chart")
	}

	values := make([]chart.Value, len(shares))
	for i, s := range shares {
		values[i] = chart.Value{
			Value: s.Percent,
			Label: fmt.Sprintf("%s %.1f%%", r.caser.String(s.Value), s.Percent),
			Style: chart.Style{FillColor: r.color(i)},
		}
	}

	pc := chart.PieChart{
		Title:  title,
		Width:  r.theme.Width,
		Height: r.theme.Height,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, eris.Wrap(err, "distribution: render pie chart")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) color(i int) drawing.Color {
	if len(r.theme.Palette) == 0 {
		return chart.GetDefaultColor(i)
	}
	return r.theme.Palette[i%len(r.theme.Palette)]
}
