package presentation

import (
	"sync"

	"github.com/BTreeMap/FarmGenius/internal/models"
)

// Theme palettes for chart text and grid lines.
var (
	LightPalette = models.Palette{TextColor: "#263238", GridColor: "rgba(0, 0, 0, 0.05)"}
	DarkPalette  = models.Palette{TextColor: "#e0e0e0", GridColor: "rgba(255, 255, 255, 0.1)"}
)

// PaletteFor returns the palette of a theme.
func PaletteFor(dark bool) models.Palette {
	if dark {
		return DarkPalette
	}
	return LightPalette
}

// ChartWidget is a live chart that can be re-skinned.
type ChartWidget interface {
	ID() string
	SetPalette(p models.Palette)
	State() ChartState
}

// ChartState is what the browser needs to draw a chart.
type ChartState struct {
	ID      string           `json:"id"`
	Title   string           `json:"title,omitempty"`
	Data    models.ChartData `json:"data"`
	Palette models.Palette   `json:"palette"`
}

// Chart is the in-memory ChartWidget.
type Chart struct {
	mu    sync.Mutex
	state ChartState
}

// NewChart creates a chart with the light palette.
func NewChart(id string) *Chart {
	return &Chart{state: ChartState{ID: id, Palette: LightPalette}}
}

func (c *Chart) ID() string { return c.state.ID }

func (c *Chart) SetPalette(p models.Palette) {
	c.mu.Lock()
	c.state.Palette = p
	c.mu.Unlock()
}

// SetData replaces the plotted data and title.
func (c *Chart) SetData(title string, data models.ChartData) {
	c.mu.Lock()
	c.state.Title = title
	c.state.Data = data
	c.mu.Unlock()
}

func (c *Chart) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Data.Labels = append([]string(nil), s.Data.Labels...)
	s.Data.Series = append([]float64(nil), s.Data.Series...)
	return s
}
