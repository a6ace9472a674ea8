package analysis

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/hyp3rd/ewrap"
)

const (
	// maxSheetColumns is the widest worksheet Excel writes (column XFD).
	maxSheetColumns = 16384
	// maxRefLetters is the length of the column part of "XFD1".
	maxRefLetters = 3
	// maxPartBytes caps the inflated size of a single workbook part.
	maxPartBytes = 64 << 20
)

// ReadXLSX extracts the rows of one worksheet into a Table. The first row is
// the header. If sheetName is empty the sheet is chosen by sheetIndex
// (1-based, <= 0 means the first sheet).
func ReadXLSX(data []byte, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	wb, err := openWorkbook(data)
	if err != nil {
		return nil, err
	}
	target, err := wb.sheetPart(sheetName, sheetIndex)
	if err != nil {
		return nil, err
	}
	sheet, err := wb.part(target)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, &ParseError{Err: ewrap.Newf("worksheet %s missing from workbook", target)}
	}
	shared, err := wb.sharedStrings()
	if err != nil {
		return nil, err
	}

	rows := newRowScanner(sheet, shared)
	header, err := rows.next(maxSheetColumns)
	if errors.Is(err, io.EOF) || (err == nil && len(header) == 0) {
		return nil, &ParseError{Err: ErrNoColumns}
	}
	if err != nil {
		return nil, err
	}

	ncol := len(header)
	var records [][]string
	for {
		row, err := rows.next(ncol)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRow(row) {
			continue
		}
		if len(row) < ncol {
			row = append(row, make([]string, ncol-len(row))...)
		}
		records = append(records, row)
	}
	return BuildTable(header, records, opt)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type workbook struct {
	zr *zip.Reader
}

func openWorkbook(data []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Err: ewrap.Wrap(err, "open xlsx")}
	}
	return &workbook{zr: zr}, nil
}

// part returns the inflated zip entry, or nil when the workbook lacks it.
func (wb *workbook) part(name string) ([]byte, error) {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > maxPartBytes {
			return nil, &ParseError{Err: ewrap.Wrapf(ErrPartTooLarge, "%s", name)}
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &ParseError{Err: ewrap.Wrapf(err, "open %s", name)}
		}
		defer rc.Close()
		// the declared size is not trusted; read one byte past the cap to detect overruns
		b, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
		if err != nil {
			return nil, &ParseError{Err: ewrap.Wrapf(err, "read %s", name)}
		}
		if len(b) > maxPartBytes {
			return nil, &ParseError{Err: ewrap.Wrapf(ErrPartTooLarge, "%s", name)}
		}
		return b, nil
	}
	return nil, nil
}

type workbookSheet struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RelID   string `xml:"id,attr"`
}

func (wb *workbook) sheets() ([]workbookSheet, error) {
	data, err := wb.part("xl/workbook.xml")
	if err != nil || data == nil {
		return nil, err
	}
	var doc struct {
		Sheets []workbookSheet `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: ewrap.Wrap(err, "decode workbook.xml")}
	}
	return doc.Sheets, nil
}

// relationships maps relationship ids to zip entry names.
func (wb *workbook) relationships() (map[string]string, error) {
	out := map[string]string{}
	data, err := wb.part("xl/_rels/workbook.xml.rels")
	if err != nil || data == nil {
		return out, err
	}
	var doc struct {
		Rels []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: ewrap.Wrap(err, "decode workbook relationships")}
	}
	for _, r := range doc.Rels {
		if r.ID != "" && r.Target != "" {
			out[r.ID] = entryName(r.Target)
		}
	}
	return out, nil
}

// sheetPart resolves the zip entry of the requested worksheet. A name is
// matched case-insensitively; otherwise index selects by sheetId.
func (wb *workbook) sheetPart(name string, index int) (string, error) {
	sheets, err := wb.sheets()
	if err != nil {
		return "", err
	}
	rels, err := wb.relationships()
	if err != nil {
		return "", err
	}

	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, name) {
				if target, ok := rels[s.RelID]; ok {
					return target, nil
				}
				break
			}
		}
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
		}
		return "", &ParseError{Err: ewrap.Newf("sheet %q not found; available sheets: %s", name, strings.Join(names, ", "))}
	}

	if index <= 0 {
		index = 1
	}
	for _, s := range sheets {
		if s.SheetID != index {
			continue
		}
		if target, ok := rels[s.RelID]; ok {
			return target, nil
		}
		break
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

// sharedStrings returns the string table; phonetic runs are skipped.
func (wb *workbook) sharedStrings() ([]string, error) {
	data, err := wb.part("xl/sharedStrings.xml")
	if err != nil || data == nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out      []string
		cur      strings.Builder
		inText   bool
		phonetic int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, &ParseError{Err: ewrap.Wrap(err, "decode sharedStrings.xml")}
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				cur.Reset()
			case "rPh":
				phonetic++
			case "t":
				inText = phonetic == 0
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "si":
				out = append(out, cur.String())
			case "rPh":
				phonetic--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		}
	}
}

// rowScanner walks the <row> elements of a worksheet in document order.
type rowScanner struct {
	dec    *xml.Decoder
	shared []string
	line   int
}

func newRowScanner(sheet []byte, shared []string) *rowScanner {
	return &rowScanner{dec: xml.NewDecoder(bytes.NewReader(sheet)), shared: shared}
}

// next returns the following row as a dense slice of at most width cells,
// or io.EOF. A value in a column at or beyond width is a field-count error.
func (s *rowScanner) next(width int) ([]string, error) {
	for {
		tok, err := s.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, &ParseError{Row: s.line, Err: ewrap.Wrap(err, "decode worksheet")}
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "row" {
			s.line++
			return s.row(width)
		}
	}
}

func (s *rowScanner) row(width int) ([]string, error) {
	var row []string
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, &ParseError{Row: s.line, Err: ewrap.Wrap(err, "decode worksheet row")}
		}
		switch el := tok.(type) {
		case xml.EndElement:
			if el.Name.Local == "row" {
				return row, nil
			}
		case xml.StartElement:
			if el.Name.Local != "c" {
				continue
			}
			var ref, typ string
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "r":
					ref = a.Value
				case "t":
					typ = a.Value
				}
			}
			col, err := cellColumn(ref)
			if err != nil {
				return nil, &ParseError{Row: s.line, Err: ewrap.Wrapf(err, "cell %q", ref)}
			}
			if col < 0 {
				col = len(row)
			}
			if col >= maxSheetColumns {
				return nil, &ParseError{Row: s.line, Err: ewrap.Wrapf(ErrCellRef, "column %d", col+1)}
			}
			val, err := s.cell(typ)
			if err != nil {
				return nil, err
			}
			if col >= width {
				if strings.TrimSpace(val) != "" {
					return nil, &ParseError{
						Row: s.line,
						Err: ewrap.Wrapf(ErrFieldCount, "expected %d fields, saw a value in column %d", width, col+1),
					}
				}
				continue
			}
			if col >= len(row) {
				row = append(row, make([]string, col+1-len(row))...)
			}
			row[col] = val
		}
	}
}

// cell consumes tokens through </c> and decodes the value by cell type.
func (s *rowScanner) cell(typ string) (string, error) {
	var (
		raw     strings.Builder
		capture bool
	)
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return "", &ParseError{Row: s.line, Err: ewrap.Wrap(err, "decode worksheet cell")}
		}
		switch el := tok.(type) {
		case xml.StartElement:
			capture = el.Name.Local == "v" || el.Name.Local == "t"
		case xml.CharData:
			if capture {
				raw.Write(el)
			}
		case xml.EndElement:
			if el.Name.Local != "c" {
				capture = false
				continue
			}
			v := raw.String()
			switch typ {
			case "s":
				idx, err := strconv.Atoi(strings.TrimSpace(v))
				if err != nil || idx < 0 || idx >= len(s.shared) {
					return "", nil
				}
				return s.shared[idx], nil
			case "b":
				if strings.TrimSpace(v) == "1" {
					return "TRUE", nil
				}
				return "FALSE", nil
			}
			return v, nil
		}
	}
}

// cellColumn maps a reference like "C12" to its 0-based column (2). It
// returns -1 when ref carries no column letters.
func cellColumn(ref string) (int, error) {
	n := 0
	for n < len(ref) && (ref[n] >= 'A' && ref[n] <= 'Z' || ref[n] >= 'a' && ref[n] <= 'z') {
		n++
	}
	if n == 0 {
		return -1, nil
	}
	if n > maxRefLetters {
		return 0, ErrCellRef
	}
	col := 0
	for _, ch := range strings.ToUpper(ref[:n]) {
		col = col*26 + int(ch-'A'+1)
	}
	if col > maxSheetColumns {
		return 0, ErrCellRef
	}
	return col - 1, nil
}

// entryName converts a relationship target to a zip entry name. Targets may
// be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func entryName(target string) string {
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}
