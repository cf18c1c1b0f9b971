package eda

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mimir-aip/attrition-risk/pkg/dataset"
)

var (
	colorLeft   = color.RGBA{R: 0xE7, G: 0x4C, B: 0x3C, A: 0xFF}
	colorStayed = color.RGBA{R: 0x2E, G: 0xCC, B: 0x71, A: 0xFF}
	colorAccent = color.RGBA{R: 0x34, G: 0x98, B: 0xDB, A: 0xFF}
)

type chart struct {
	file string
	draw func(s *Summary, table *dataset.Table, target string) (*plot.Plot, error)
}

var charts = []chart{
	{"01_attrition_distribution.png", attritionDistribution},
	{"02_attrition_by_department.png", func(s *Summary, _ *dataset.Table, _ string) (*plot.Plot, error) {
		return rateBars("Attrition Rate by Department", s.ByDepartment, false)
	}},
	{"03_age_distribution.png", func(_ *Summary, table *dataset.Table, target string) (*plot.Plot, error) {
		return classHistogram(table, target, "Age", "Age Distribution by Attrition")
	}},
	{"04_overtime_attrition.png", overtimeBars},
	{"05_income_distribution.png", func(_ *Summary, table *dataset.Table, target string) (*plot.Plot, error) {
		return classHistogram(table, target, "MonthlyIncome", "Income Distribution by Attrition")
	}},
	{"06_satisfaction_correlation.png", satisfactionBars},
	{"07_jobrole_attrition.png", func(s *Summary, _ *dataset.Table, _ string) (*plot.Plot, error) {
		return rateBars("Attrition Rate by Job Role", s.ByJobRole, true)
	}},
}

// RenderPlots writes the EDA charts into dir and returns the written paths.
// Charts whose inputs are absent from the table are skipped.
func RenderPlots(s *Summary, table *dataset.Table, target, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plots directory: %w", err)
	}

	var written []string
	for _, c := range charts {
		p, err := c.draw(s, table, target)
		if err != nil {
			return written, fmt.Errorf("failed to draw %s: %w", c.file, err)
		}
		if p == nil {
			continue
		}
		path := filepath.Join(dir, c.file)
		if err := p.Save(9*vg.Inch, 5*vg.Inch, path); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", c.file, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func attritionDistribution(s *Summary, _ *dataset.Table, _ string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Employee Attrition Overview (rate %.1f%%)", 100*s.AttritionRate)
	p.Y.Label.Text = "Number of Employees"

	bars, err := plotter.NewBarChart(plotter.Values{float64(s.Stayed), float64(s.Left)}, vg.Points(60))
	if err != nil {
		return nil, err
	}
	bars.Color = colorAccent
	p.Add(bars)
	p.NominalX("Stayed", "Left")
	return p, nil
}

// rateBars draws attrition rates in percent, one bar per group
func rateBars(title string, groups []GroupRate, horizontal bool) (*plot.Plot, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	values := make(plotter.Values, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		// Horizontal charts read bottom-up, so reverse to put the highest on top
		k := i
		if horizontal {
			k = len(groups) - 1 - i
		}
		values[k] = 100 * g.Rate
		names[k] = g.Group
	}

	p := plot.New()
	p.Title.Text = title
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Color = colorLeft
	bars.Horizontal = horizontal
	p.Add(bars)
	if horizontal {
		p.X.Label.Text = "Attrition Rate (%)"
		p.NominalY(names...)
	} else {
		p.Y.Label.Text = "Attrition Rate (%)"
		p.NominalX(names...)
	}
	return p, nil
}

func overtimeBars(s *Summary, _ *dataset.Table, _ string) (*plot.Plot, error) {
	if len(s.ByOverTime) == 0 {
		return nil, nil
	}
	labels := map[string]string{"0": "No Overtime", "1": "Works Overtime"}
	groups := make([]GroupRate, 0, 2)
	for _, key := range []string{"0", "1"} {
		for _, g := range s.ByOverTime {
			if g.Group == key {
				g.Group = labels[key]
				groups = append(groups, g)
			}
		}
	}
	return rateBars("Overtime vs Attrition Rate", groups, false)
}

func satisfactionBars(s *Summary, _ *dataset.Table, _ string) (*plot.Plot, error) {
	if len(s.SatisfactionCorrelation) == 0 {
		return nil, nil
	}
	values := make(plotter.Values, len(s.SatisfactionCorrelation))
	names := make([]string, len(s.SatisfactionCorrelation))
	for i, c := range s.SatisfactionCorrelation {
		values[i] = c.Value
		names[i] = c.Column
	}

	p := plot.New()
	p.Title.Text = "Satisfaction Metrics: Correlation with Attrition"
	p.Y.Label.Text = "Pearson r"
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = colorAccent
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// classHistogram overlays the distribution of column for each class
func classHistogram(table *dataset.Table, target, column, title string) (*plot.Plot, error) {
	labels, err := table.Floats(target)
	if err != nil {
		return nil, err
	}
	stayed, left := splitByClass(table, column, labels)
	if len(stayed) == 0 && len(left) == 0 {
		return nil, nil
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = column
	p.Y.Label.Text = "Count"

	for _, series := range []struct {
		name   string
		values []float64
		fill   color.RGBA
	}{
		{"Stayed", stayed, colorStayed},
		{"Left", left, colorLeft},
	} {
		if len(series.values) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(series.values), 20)
		if err != nil {
			return nil, err
		}
		fill := series.fill
		fill.A = 0x99
		h.FillColor = fill
		h.LineStyle.Color = color.White
		p.Add(h)
		p.Legend.Add(series.name, h)
	}
	p.Legend.Top = true
	return p, nil
}
