package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/insights"
	"github.com/KaramelBytes/docloom-insights/internal/logging"
	"github.com/KaramelBytes/docloom-insights/internal/parser"
	"github.com/KaramelBytes/docloom-insights/internal/utils"
)

var (
	anaFlags      datasetFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Compute trends, anomalies and correlations for a CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := anaFlags.options(cmd)
		if err != nil {
			return err
		}
		svc, err := cliService(opt)
		if err != nil {
			return err
		}
		in, err := analyzeFile(cmd, svc, path)
		if err != nil {
			return err
		}
		out, err := renderInsights(in, filepath.Base(path), anaFlags.format)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Wrote insights to %s\n", anaOutputPath)
			return nil
		}
		if _, err := w.Write(out); err != nil {
			return ewrap.Wrap(err, "write output")
		}
		if len(out) > 0 && out[len(out)-1] != '\n' {
			fmt.Fprintln(w)
		}
		return nil
	},
}

// cliService builds the service for one-shot commands. Logs only surface with --debug.
func cliService(opt parser.Options) (insights.Service, error) {
	c := currentConfig()
	logger := logging.Nop()
	if debug {
		l, err := newLogger(c)
		if err != nil {
			return nil, err
		}
		logger = l
	}
	return newService(c, opt, logger)
}

func analyzeFile(cmd *cobra.Command, svc insights.Service, path string) (*analysis.Insights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ewrap.Wrap(err, "read file")
	}
	in, err := svc.Generate(cmd.Context(), insights.Upload{Name: path, Data: data})
	if err != nil {
		return nil, ewrap.Wrapf(err, "analyze %s", filepath.Base(path))
	}
	return in, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the insights instead of stdout")
}
