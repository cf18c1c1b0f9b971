package training

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"

	"github.com/mimir-aip/attrition-risk/pkg/mlmodel/evaluation"
	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// WriteLeaderboard renders candidate metrics as a table sorted by ROC-AUC,
// highest first, marking the selected model with "*"
func WriteLeaderboard(w io.Writer, rows []*models.PerformanceMetrics, best string) {
	sorted := append([]*models.PerformanceMetrics(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ROCAUC > sorted[j].ROCAUC })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Model", "ROC-AUC", "F1", "Precision", "Recall", "Accuracy"})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, m := range sorted {
		mark := ""
		if m.Model == best {
			mark = "*"
		}
		table.Append([]string{mark, m.Model, f4(m.ROCAUC), f4(m.F1Score), f4(m.Precision), f4(m.Recall), f4(m.Accuracy)})
	}
	table.Render()
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteROC draws the candidate's test ROC curve as a terminal chart, TPR
// sampled at width evenly spaced false positive rates. Nothing is written
// when the labels hold a single class.
func WriteROC(w io.Writer, c *Candidate, y []float64, width int) error {
	fpr, tpr, ok := evaluation.ROCCurve(y, c.Proba)
	if !ok || width < 2 {
		return nil
	}
	series := SampleROC(fpr, tpr, width)
	chart := asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("%s ROC (AUC %.3f), FPR 0 to 1", c.Name, evaluation.ROCAUC(y, c.Proba))),
	)
	_, err := fmt.Fprintln(w, chart)
	return err
}

// SampleROC returns the highest TPR reached at each of n evenly spaced
// false positive rates in [0, 1]
func SampleROC(fpr, tpr []float64, n int) []float64 {
	out := make([]float64, n)
	j := 0
	best := 0.0
	for i := range out {
		x := float64(i) / float64(n-1)
		for j < len(fpr) && fpr[j] <= x {
			if tpr[j] > best {
				best = tpr[j]
			}
			j++
		}
		out[i] = best
	}
	return out
}
