package evaluation

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Curve is one model's scores on a labelled set
type Curve struct {
	Name  string
	Y     []float64
	Proba []float64
}

// PlotROC writes a PNG (or any format gonum/plot infers from the file
// extension) with one ROC line per curve and the chance diagonal
func PlotROC(path string, curves []Curve) error {
	p := plot.New()
	p.Title.Text = "ROC curves (test set)"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	lines := make([]interface{}, 0, 2*len(curves)+2)
	for _, c := range curves {
		fpr, tpr, ok := ROCCurve(c.Y, c.Proba)
		if !ok {
			continue
		}
		pts := make(plotter.XYs, len(fpr))
		for i := range fpr {
			pts[i].X, pts[i].Y = fpr[i], tpr[i]
		}
		lines = append(lines, fmt.Sprintf("%s (AUC %.3f)", c.Name, ROCAUC(c.Y, c.Proba)), pts)
	}
	lines = append(lines, "chance", plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})

	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("failed to add ROC lines: %w", err)
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save ROC plot: %w", err)
	}
	return nil
}
