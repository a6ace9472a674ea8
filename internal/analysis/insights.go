package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Insights holds the three descriptive statistics for a table. Every map is
// keyed by numeric column name in table order.
type Insights struct {
	Trends       *OrderedMap[Float]              `json:"trends" yaml:"trends"`
	Anomalies    *OrderedMap[[]Row]              `json:"anomalies" yaml:"anomalies"`
	Correlations *OrderedMap[*OrderedMap[Float]] `json:"correlations" yaml:"correlations"`
}

// Analyze computes trends, anomalies and correlations over the numeric
// columns of t. It does not modify t and performs no I/O.
func Analyze(t *Table, opt Options) (*Insights, error) {
	if t == nil {
		return nil, &ComputationError{Err: ErrNilTable}
	}
	out := &Insights{
		Trends:       NewOrderedMap[Float](),
		Anomalies:    NewOrderedMap[[]Row](),
		Correlations: NewOrderedMap[*OrderedMap[Float]](),
	}
	if t.Rows() == 0 {
		return out, nil
	}
	numCols := t.NumericColumns()
	if len(numCols) == 0 {
		return out, nil
	}

	for _, c := range numCols {
		vals := c.Values()
		mean, err := columnMean(c, vals)
		if err != nil {
			return nil, err
		}
		out.Trends.Set(c.Name, Float(mean))

		rows, err := columnAnomalies(t, c, vals, opt.threshold())
		if err != nil {
			return nil, err
		}
		out.Anomalies.Set(c.Name, rows)
	}

	for _, a := range numCols {
		row := NewOrderedMap[Float]()
		for _, b := range numCols {
			r, err := pairCorrelation(a, b)
			if err != nil {
				return nil, err
			}
			row.Set(b.Name, Float(r))
		}
		out.Correlations.Set(a.Name, row)
	}
	return out, nil
}

// columnMean returns NaN for a column with no values.
func columnMean(c *Column, vals []float64) (float64, error) {
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	m := stat.Mean(vals, nil)
	if err := checkFinite(c.Name, "mean", m, vals); err != nil {
		return 0, err
	}
	return m, nil
}

// columnAnomalies returns the rows whose value is more than threshold sample
// standard deviations from the mean. Constant columns, columns with fewer
// than two values and missing cells never produce an anomaly.
func columnAnomalies(t *Table, c *Column, vals []float64, threshold float64) ([]Row, error) {
	rows := []Row{}
	if len(vals) < 2 {
		return rows, nil
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if err := checkFinite(c.Name, "std", std, vals); err != nil {
		return nil, err
	}
	if std == 0 {
		return rows, nil
	}
	for i, v := range c.Nums {
		if c.Missing[i] {
			continue
		}
		if math.Abs(v-mean)/std > threshold {
			rows = append(rows, t.Row(i))
		}
	}
	return rows, nil
}

// pairCorrelation computes Pearson r over rows where both columns have a
// value. The result is NaN when fewer than two pairs exist or either side has
// zero variance; a column paired with itself is exactly 1 otherwise.
func pairCorrelation(a, b *Column) (float64, error) {
	xs := make([]float64, 0, len(a.Nums))
	ys := make([]float64, 0, len(b.Nums))
	for i := range a.Nums {
		if a.Missing[i] || b.Missing[i] {
			continue
		}
		xs = append(xs, a.Nums[i])
		ys = append(ys, b.Nums[i])
	}
	if len(xs) < 2 {
		return math.NaN(), nil
	}
	_, sx := stat.MeanStdDev(xs, nil)
	_, sy := stat.MeanStdDev(ys, nil)
	if sx == 0 || sy == 0 || math.IsNaN(sx) || math.IsNaN(sy) {
		return math.NaN(), nil
	}
	if a == b {
		return 1, nil
	}
	r := stat.Correlation(xs, ys, nil)
	if err := checkFinite(a.Name+"~"+b.Name, "correlation", r, append(xs, ys...)); err != nil {
		return 0, err
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, nil
}

// checkFinite reports a ComputationError when v is NaN or infinite although
// every input was finite.
func checkFinite(col, statName string, v float64, inputs []float64) error {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		return nil
	}
	for _, x := range inputs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return &ComputationError{Column: col, Stat: statName, Err: ErrNonFinite}
}
