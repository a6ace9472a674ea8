package analysis

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

func mustTable(t *testing.T, in string) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(in), DefaultOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tbl
}

func mustAnalyze(t *testing.T, tbl *Table, opt Options) *Insights {
	t.Helper()
	in, err := Analyze(tbl, opt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return in
}

func TestAnalyzeConstantColumn(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "c\n7\n7\n7\n7\n"), DefaultOptions())
	mean, ok := in.Trends.Get("c")
	if !ok || float64(mean) != 7 {
		t.Fatalf("trend = %v,%v", mean, ok)
	}
	rows, ok := in.Anomalies.Get("c")
	if !ok || len(rows) != 0 {
		t.Fatalf("anomalies = %#v", rows)
	}
	row, _ := in.Correlations.Get("c")
	r, _ := row.Get("c")
	if r.Defined() {
		t.Fatalf("self correlation of constant column = %v, want NaN", r)
	}
}

func TestAnalyzePerfectLinearCorrelation(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "a,b,c\n1,3,10\n2,5,8\n3,7,6\n4,9,4\n"), DefaultOptions())
	ab := corr(t, in, "a", "b")
	ba := corr(t, in, "b", "a")
	if !almostEqual(ab, 1, 1e-12) || !almostEqual(ba, 1, 1e-12) {
		t.Fatalf("corr a~b=%v b~a=%v", ab, ba)
	}
	if ac := corr(t, in, "a", "c"); !almostEqual(ac, -1, 1e-12) {
		t.Fatalf("corr a~c=%v", ac)
	}
	for _, k := range []string{"a", "b", "c"} {
		if self := corr(t, in, k, k); self != 1 {
			t.Fatalf("self corr %s = %v", k, self)
		}
	}
}

func TestAnalyzeSingleOutlier(t *testing.T) {
	vals := []string{"1", "2", "3", "4", "1", "2", "3", "4", "1", "2", "3", "4", "1000"}
	var b strings.Builder
	b.WriteString("id,v\n")
	for i, v := range vals {
		b.WriteString("r")
		b.WriteString(string(rune('a' + i)))
		b.WriteString(",")
		b.WriteString(v)
		b.WriteString("\n")
	}
	in := mustAnalyze(t, mustTable(t, b.String()), DefaultOptions())
	rows, _ := in.Anomalies.Get("v")
	if len(rows) != 1 || rows[0].Index != 12 {
		t.Fatalf("anomalies = %#v", rows)
	}
	id, _ := rows[0].Get("id")
	if id.Str != "rm" {
		t.Fatalf("flagged row should carry every column, id = %#v", id)
	}
}

func TestAnalyzeShortColumnOutlierNeedsLowerThreshold(t *testing.T) {
	tbl := mustTable(t, "v\n1\n2\n3\n4\n1000\n")
	// With five values no point can be more than (n-1)/sqrt(n) sample deviations out.
	in := mustAnalyze(t, tbl, DefaultOptions())
	if rows, _ := in.Anomalies.Get("v"); len(rows) != 0 {
		t.Fatalf("default threshold anomalies = %#v", rows)
	}
	opt := DefaultOptions()
	opt.ZThreshold = 1.5
	in = mustAnalyze(t, tbl, opt)
	rows, _ := in.Anomalies.Get("v")
	if len(rows) != 1 || rows[0].Index != 4 {
		t.Fatalf("anomalies = %#v", rows)
	}
}

func TestAnalyzeExcludesTextColumns(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "name,x,city,y\nann,1,rome,2\nbob,2,oslo,4\ncat,3,nice,7\n"), DefaultOptions())
	want := []string{"x", "y"}
	if !equalStrings(in.Trends.Keys(), want) {
		t.Fatalf("trend keys = %v", in.Trends.Keys())
	}
	if !equalStrings(in.Anomalies.Keys(), want) {
		t.Fatalf("anomaly keys = %v", in.Anomalies.Keys())
	}
	if !equalStrings(in.Correlations.Keys(), want) {
		t.Fatalf("correlation keys = %v", in.Correlations.Keys())
	}
	for _, k := range want {
		row, _ := in.Correlations.Get(k)
		if !equalStrings(row.Keys(), want) {
			t.Fatalf("correlation[%s] keys = %v", k, row.Keys())
		}
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	cases := map[string]string{
		"header only":     "a,b\n",
		"no numeric cols": "a,b\nx,y\nz,w\n",
	}
	for name, csv := range cases {
		t.Run(name, func(t *testing.T) {
			in := mustAnalyze(t, mustTable(t, csv), DefaultOptions())
			if in.Trends.Len() != 0 || in.Anomalies.Len() != 0 || in.Correlations.Len() != 0 {
				t.Fatalf("expected empty maps, got %d/%d/%d", in.Trends.Len(), in.Anomalies.Len(), in.Correlations.Len())
			}
			b, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != `{"trends":{},"anomalies":{},"correlations":{}}` {
				t.Fatalf("json = %s", b)
			}
		})
	}
}

func TestAnalyzeMissingValues(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "a,b\n1,2\n,4\n3,\n5,8\n"), DefaultOptions())
	if m, _ := in.Trends.Get("a"); float64(m) != 3 {
		t.Fatalf("mean a = %v", m)
	}
	if m, _ := in.Trends.Get("b"); !almostEqual(float64(m), 14.0/3, 1e-12) {
		t.Fatalf("mean b = %v", m)
	}
	// pairwise complete rows are (1,2) and (5,8)
	if r := corr(t, in, "a", "b"); !almostEqual(r, 1, 1e-12) {
		t.Fatalf("corr = %v", r)
	}
}

func TestAnalyzeMissingRowsNeverFlagged(t *testing.T) {
	var b strings.Builder
	b.WriteString("v\n")
	for i := 0; i < 20; i++ {
		b.WriteString("1\n")
	}
	b.WriteString("\n")
	b.WriteString("NA\n")
	b.WriteString("2\n")
	b.WriteString("500\n")
	in := mustAnalyze(t, mustTable(t, b.String()), DefaultOptions())
	rows, _ := in.Anomalies.Get("v")
	if len(rows) != 1 {
		t.Fatalf("anomalies = %#v", rows)
	}
	if c, _ := rows[0].Get("v"); c.Missing || c.Num != 500 {
		t.Fatalf("flagged cell = %#v", c)
	}
}

func TestAnalyzeAllMissingNumericColumn(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "a,b\n1,\n2,\n3,\n"), DefaultOptions())
	m, ok := in.Trends.Get("b")
	if !ok || m.Defined() {
		t.Fatalf("mean of all-missing column = %v,%v", m, ok)
	}
	if r := corr(t, in, "a", "b"); !math.IsNaN(r) {
		t.Fatalf("corr with empty column = %v", r)
	}
}

func TestAnalyzeNilTable(t *testing.T) {
	_, err := Analyze(nil, DefaultOptions())
	var ce *ComputationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ComputationError, got %v", err)
	}
}

func TestAnalyzeOverflowIsComputationError(t *testing.T) {
	_, err := Analyze(mustTable(t, "big\n1e308\n1e308\n"), DefaultOptions())
	var ce *ComputationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ComputationError, got %v", err)
	}
	if ce.Column != "big" || !errors.Is(err, ErrNonFinite) {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(strings.Join(csvRows, "\n")), localeOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	first, err := json.Marshal(mustAnalyze(t, tbl, DefaultOptions()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(mustAnalyze(t, tbl, DefaultOptions()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestAnalyzeLocaleDataset(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(strings.Join(csvRows, "\n")), localeOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	in := mustAnalyze(t, tbl, DefaultOptions())
	if m, _ := in.Trends.Get("Score"); !almostEqual(float64(m), mean(expectScore), 1e-9) {
		t.Fatalf("score mean = %v", m)
	}
	if r := corr(t, in, "Score", "LocaleNumber"); !almostEqual(r, pearson(expectScore, expectLocale), 1e-9) {
		t.Fatalf("score~locale = %v", r)
	}
	if r, r2 := corr(t, in, "Score", "Temp (°F)"), corr(t, in, "Temp (°F)", "Score"); r != r2 {
		t.Fatalf("matrix not symmetric: %v vs %v", r, r2)
	}
	// ten rows cannot exceed |z| of 9/sqrt(10) ~ 2.85
	for _, k := range in.Anomalies.Keys() {
		if rows, _ := in.Anomalies.Get(k); len(rows) != 0 {
			t.Fatalf("unexpected anomalies for %s: %d", k, len(rows))
		}
	}
}

func TestInsightsJSONShape(t *testing.T) {
	var b strings.Builder
	b.WriteString("label,z,k\n")
	for i := 0; i < 12; i++ {
		b.WriteString("n,0,5\n")
	}
	b.WriteString("far,100,5\n")
	b.WriteString(",,5\n")
	in := mustAnalyze(t, mustTable(t, b.String()), DefaultOptions())

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, `{"trends":{"z":`) {
		t.Fatalf("unexpected prefix: %s", s)
	}
	if !strings.Contains(s, `"anomalies":{"z":[{"label":"far","z":100,"k":5}],"k":[]}`) {
		t.Fatalf("anomalies not encoded in column order: %s", s)
	}
	if !strings.Contains(s, `"k":{"z":null,"k":null}`) {
		t.Fatalf("undefined correlations should be null: %s", s)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["correlations"]["z"]; !ok {
		t.Fatalf("decoded = %#v", decoded)
	}
}

func TestInsightsYAML(t *testing.T) {
	in := mustAnalyze(t, mustTable(t, "b,a\n1,2\n2,4\n3,6\n"), DefaultOptions())
	out, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	s := string(out)
	if strings.Index(s, "b: 2") > strings.Index(s, "a: 4") {
		t.Fatalf("yaml keys not in column order:\n%s", s)
	}
	if !strings.Contains(s, "anomalies:\n    b: []\n    a: []") {
		t.Fatalf("yaml anomalies:\n%s", s)
	}
}

func TestInsightsMarkdown(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 0; i < 12; i++ {
		b.WriteString("1,2\n2,4\n")
	}
	b.WriteString("90,180\n")
	in := mustAnalyze(t, mustTable(t, b.String()), DefaultOptions())
	md := in.Markdown("pairs.csv")
	for _, want := range []string{"[DATASET INSIGHTS]", "File: pairs.csv", "[TRENDS]", "- x: mean", "[ANOMALIES]", "- x: 1 row(s)", "row 25: x=90", "[CORRELATIONS]", "- x ~ y: r=1.000"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func corr(t *testing.T, in *Insights, a, b string) float64 {
	t.Helper()
	row, ok := in.Correlations.Get(a)
	if !ok {
		t.Fatalf("no correlation row %q", a)
	}
	r, ok := row.Get(b)
	if !ok {
		t.Fatalf("no correlation %q~%q", a, b)
	}
	return float64(r)
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func pearson(a, b []float64) float64 {
	ma, mb := mean(a), mean(b)
	var num, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	return num / math.Sqrt(da2*db2)
}
