package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/docloom-insights/internal/utils"
)

var (
	abFlags  datasetFlags
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress, writing one insights file each",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return errorf("no input files matched")
		}

		opt, err := abFlags.options(cmd)
		if err != nil {
			return err
		}
		ext, err := formatExt(abFlags.format)
		if err != nil {
			return err
		}
		svc, err := cliService(opt)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			in, err := analyzeFile(cmd, svc, path)
			if err != nil {
				return err
			}
			out, err := renderInsights(in, filepath.Base(path), abFlags.format)
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			base = strings.TrimSuffix(base, filepath.Ext(base))
			if abFlags.sheetName != "" {
				base += "__sheet-" + sheetSlug(abFlags.sheetName)
			}
			outFile := utils.UniquePath(abOutDir, base, ".insights"+ext)
			if err := utils.SafeWriteFile(outFile, out); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Fprintf(w, "✓ Wrote %s\n", outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, and returns a
// sorted list without duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func sheetSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return ss
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", ".", "directory for <name>.insights.<ext> files")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
