// Package trends renders stored audit history.
package trends

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/thirukguru/aws-posture/service/storage"
)

// RenderTrendTable prints a table of daily trend points.
func RenderTrendTable(points []storage.TrendPoint) {
	renderTrend(os.Stdout, points)
}

func renderTrend(w io.Writer, points []storage.TrendPoint) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Account", "Date", "Total", "Critical", "High", "Medium", "Low", "Info", "Score"})
	for _, p := range points {
		t.AppendRow(table.Row{p.AccountID, p.Date, p.Total, p.Critical, p.High, p.Medium, p.Low, p.Info, p.Score})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// RenderComparisonTable prints the finding delta between two scans.
func RenderComparisonTable(cmp *storage.ScanComparison) {
	renderComparison(os.Stdout, cmp)
}

func renderComparison(w io.Writer, cmp *storage.ScanComparison) {
	if cmp == nil {
		fmt.Fprintln(w, "No comparison data available")
		return
	}
	fmt.Fprintf(w, "\nScan Comparison (%d -> %d)\n", cmp.ScanID1, cmp.ScanID2)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"New", "Resolved", "Persistent"})
	t.AppendRow(table.Row{cmp.NewFindings, cmp.Resolved, cmp.Persistent})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
