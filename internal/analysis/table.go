package analysis

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hyp3rd/ewrap"
)

// Kind is the inferred element type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, column-major slice of values with an explicit missing mask.
// Numeric columns fill Nums (NaN where missing); text columns fill Strs.
type Column struct {
	Name    string
	Kind    Kind
	Nums    []float64
	Strs    []string
	Missing []bool
}

// Len returns the number of rows stored in the column.
func (c *Column) Len() int { return len(c.Missing) }

// Values returns the non-missing numeric values in row order.
func (c *Column) Values() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Cell returns the value at row i.
func (c *Column) Cell(i int) Cell {
	cell := Cell{Kind: c.Kind, Missing: c.Missing[i]}
	if cell.Missing {
		return cell
	}
	if c.Kind == KindNumeric {
		cell.Num = c.Nums[i]
	} else {
		cell.Str = c.Strs[i]
	}
	return cell
}

// Cell is a single typed value. A missing cell carries no value.
type Cell struct {
	Kind    Kind
	Num     float64
	Str     string
	Missing bool
}

// Interface returns nil, a float64 or a string.
func (c Cell) Interface() any {
	switch {
	case c.Missing:
		return nil
	case c.Kind == KindNumeric:
		return c.Num
	default:
		return c.Str
	}
}

// Row is a full table row, keyed by column name in table order.
type Row struct {
	Index int
	Names []string
	Cells []Cell
}

// Get returns the cell for the named column.
func (r Row) Get(name string) (Cell, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Cells[i], true
		}
	}
	return Cell{}, false
}

// Table is an ordered set of equally long columns.
type Table struct {
	Columns []*Column
	rows    int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Row materializes row i across every column.
func (t *Table) Row(i int) Row {
	r := Row{Index: i, Names: make([]string, len(t.Columns)), Cells: make([]Cell, len(t.Columns))}
	for j, c := range t.Columns {
		r.Names[j] = c.Name
		r.Cells[j] = c.Cell(i)
	}
	return r
}

// BuildTable infers column kinds from raw string records. Every record must
// have exactly len(header) fields.
func BuildTable(header []string, records [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, &ParseError{Err: ErrNoColumns}
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, &ParseError{
				Row: i + 2,
				Err: ewrap.Wrapf(ErrFieldCount, "expected %d fields, saw %d", len(header), len(rec)),
			}
		}
	}
	names := normalizeHeader(header)
	ms := newMissingSet(opt.MissingTokens)
	t := &Table{Columns: make([]*Column, len(names)), rows: len(records)}
	cells := make([]string, len(records))
	for j, name := range names {
		for i, rec := range records {
			cells[i] = rec[j]
		}
		t.Columns[j] = buildColumn(name, cells, ms, opt)
	}
	return t, nil
}

// buildColumn marks a column numeric when it has rows and every non-missing
// cell parses as a number.
func buildColumn(name string, cells []string, ms missingSet, opt Options) *Column {
	rows := len(cells)
	c := &Column{Name: name, Missing: make([]bool, rows)}
	nums := make([]float64, rows)
	numeric := rows > 0
	for i, v := range cells {
		if ms.has(v) {
			c.Missing[i] = true
			nums[i] = math.NaN()
			continue
		}
		if !numeric {
			continue
		}
		if f, ok := parseNumeric(v, opt); ok {
			nums[i] = f
			continue
		}
		numeric = false
	}
	if numeric {
		// ParseFloat accepts NaN spellings outside the missing-token set
		for i, f := range nums {
			if math.IsNaN(f) {
				c.Missing[i] = true
			}
		}
		c.Kind = KindNumeric
		c.Nums = nums
		return c
	}
	c.Kind = KindText
	c.Strs = make([]string, rows)
	for i, v := range cells {
		if !c.Missing[i] {
			c.Strs[i] = v
		}
	}
	return c
}

// normalizeHeader strips a UTF-8 BOM, names blank headers "Unnamed: <i>"
// and suffixes duplicates with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if used[h] {
			k := counts[h]
			for {
				k++
				cand := h + "." + strconv.Itoa(k)
				if !used[cand] {
					counts[h] = k
					h = cand
					break
				}
			}
		}
		used[h] = true
		out[i] = h
	}
	return out
}

// ReadCSV parses delimited text into a Table. Blank lines are skipped.
func ReadCSV(r io.Reader, opt Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: ErrNoColumns}
		}
		return nil, csvParseError(err)
	}
	header = append([]string(nil), header...)

	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, csvParseError(err)
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{
				Row: line,
				Err: ewrap.Wrapf(ErrFieldCount, "expected %d fields, saw %d", len(header), len(rec)),
			}
		}
		records = append(records, rec)
	}
	return BuildTable(header, records, opt)
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Row: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}
