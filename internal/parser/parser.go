package parser

import (
	"os"

	"github.com/hyp3rd/ewrap"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
)

// Parser turns an uploaded file into a table.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte, opt Options) (*analysis.Table, error)
}

// Options extends the analysis options with workbook sheet selection.
type Options struct {
	analysis.Options
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns comma-separated, dot-decimal parsing of the first sheet.
func DefaultOptions() Options {
	return Options{Options: analysis.DefaultOptions(), SheetIndex: 1}
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ParseBytes selects a parser from the filename extension. Files no parser
// claims are read as CSV.
func ParseBytes(filename string, content []byte, opt Options) (*analysis.Table, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p.Parse(content, opt)
		}
	}
	return csvParser{}.Parse(content, opt)
}

// ParseFile reads path from disk and parses it with ParseBytes.
func ParseFile(path string, opt Options) (*analysis.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ewrap.Wrap(err, "read file")
	}
	return ParseBytes(path, data, opt)
}

func init() {
	Register(csvParser{})
	Register(tsvParser{})
	Register(xlsxParser{})
}
