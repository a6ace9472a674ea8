package parser

import (
	"bytes"
	"strings"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

func (csvParser) Parse(content []byte, opt Options) (*analysis.Table, error) {
	return analysis.ReadCSV(bytes.NewReader(content), opt.Options)
}

// tsvParser reads tab-separated files unless a delimiter was configured.
type tsvParser struct{}

func (tsvParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".tsv")
}

func (tsvParser) Parse(content []byte, opt Options) (*analysis.Table, error) {
	o := opt.Options
	if o.Delimiter == 0 {
		o.Delimiter = '\t'
	}
	return analysis.ReadCSV(bytes.NewReader(content), o)
}
