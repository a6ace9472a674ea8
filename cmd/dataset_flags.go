package cmd

import (
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/docloom-insights/internal/config"
	"github.com/KaramelBytes/docloom-insights/internal/parser"
)

// datasetFlags are the parsing and analysis flags shared by analyze and analyze-batch.
type datasetFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	zThreshold float64
	sheetName  string
	sheetIndex int
	format     string
}

func (d *datasetFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&d.delimiter, "delimiter", "", "field delimiter, e.g. ',' ';' '|' or 'tab' (default from config, else by extension)")
	f.StringVar(&d.decimal, "decimal", "", "decimal separator for numbers: '.' or ',' (default from config)")
	f.StringVar(&d.thousands, "thousands", "", "thousands separator for numbers, e.g. ',' '.' or 'space' (default from config)")
	f.Float64Var(&d.zThreshold, "z-threshold", 0, "flag values with |z| above this (default from config, 3.0)")
	f.StringVar(&d.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	f.IntVar(&d.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.StringVarP(&d.format, "format", "f", "markdown", "output format: json|yaml|markdown")
}

// options layers the flags over the configured defaults.
func (d *datasetFlags) options(cmd *cobra.Command) (parser.Options, error) {
	opt, err := currentConfig().ParserOptions()
	if err != nil {
		return opt, err
	}
	f := cmd.Flags()
	if f.Changed("delimiter") {
		if opt.Delimiter, err = cfgpkg.ParseRune("--delimiter", d.delimiter); err != nil {
			return opt, err
		}
	}
	if f.Changed("decimal") {
		if opt.DecimalSeparator, err = cfgpkg.ParseRune("--decimal", d.decimal); err != nil {
			return opt, err
		}
	}
	if f.Changed("thousands") {
		t := d.thousands
		if t == "space" {
			t = " "
		}
		if opt.ThousandsSeparator, err = cfgpkg.ParseRune("--thousands", t); err != nil {
			return opt, err
		}
	}
	if f.Changed("z-threshold") {
		if d.zThreshold <= 0 {
			return opt, errorf("--z-threshold must be positive, got %g", d.zThreshold)
		}
		opt.ZThreshold = d.zThreshold
	}
	opt.SheetName = d.sheetName
	opt.SheetIndex = d.sheetIndex
	if _, err := formatExt(d.format); err != nil {
		return opt, err
	}
	return opt, nil
}
