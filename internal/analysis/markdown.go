package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// maxAnomalyRows caps the rows listed per column in the Markdown rendering.
const maxAnomalyRows = 10

// Markdown renders a compact summary of the insights for terminals and docs.
func (in *Insights) Markdown(name string) string {
	var b strings.Builder
	b.WriteString("[DATASET INSIGHTS]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Numeric columns: %d\n", in.Trends.Len()))

	b.WriteString("\n[TRENDS]\n")
	if in.Trends.Len() == 0 {
		b.WriteString("- (no numeric columns)\n")
	}
	for _, k := range in.Trends.Keys() {
		v, _ := in.Trends.Get(k)
		b.WriteString(fmt.Sprintf("- %s: mean %s\n", safeName(k), fmtFloat(v)))
	}

	b.WriteString("\n[ANOMALIES]\n")
	flagged := 0
	for _, k := range in.Anomalies.Keys() {
		rows, _ := in.Anomalies.Get(k)
		if len(rows) == 0 {
			continue
		}
		flagged++
		b.WriteString(fmt.Sprintf("- %s: %d row(s)\n", safeName(k), len(rows)))
		lim := len(rows)
		if lim > maxAnomalyRows {
			lim = maxAnomalyRows
		}
		for _, r := range rows[:lim] {
			cell, _ := r.Get(k)
			b.WriteString(fmt.Sprintf("  • row %d: %s=%s\n", r.Index+1, safeName(k), fmtCell(cell)))
		}
		if len(rows) > lim {
			b.WriteString(fmt.Sprintf("  • ... %d more\n", len(rows)-lim))
		}
	}
	if flagged == 0 {
		b.WriteString("- none\n")
	}

	if in.Correlations.Len() >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		keys := in.Correlations.Keys()
		for i := 0; i < len(keys); i++ {
			row, _ := in.Correlations.Get(keys[i])
			for j := i + 1; j < len(keys); j++ {
				r, _ := row.Get(keys[j])
				if !r.Defined() {
					continue
				}
				pairs = append(pairs, pr{A: keys[i], B: keys[j], R: float64(r)})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
		})
		maxp := 10
		if len(pairs) < maxp {
			maxp = len(pairs)
		}
		for i := 0; i < maxp; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", safeName(pairs[i].A), safeName(pairs[i].B), pairs[i].R))
		}
		if len(pairs) == 0 {
			b.WriteString("- (undefined)\n")
		}
	}
	return b.String()
}

func fmtFloat(f Float) string {
	if !f.Defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", float64(f))
}

func fmtCell(c Cell) string {
	switch {
	case c.Missing:
		return "n/a"
	case c.Kind == KindNumeric:
		return fmtFloat(Float(c.Num))
	default:
		return safeVal(c.Str)
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
