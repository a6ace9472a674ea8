package parser

import (
	"strings"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse reads the sheet named by opt.SheetName, or the opt.SheetIndex-th
// sheet when no name is given.
func (xlsxParser) Parse(content []byte, opt Options) (*analysis.Table, error) {
	return analysis.ReadXLSX(content, opt.Options, opt.SheetName, opt.SheetIndex)
}
