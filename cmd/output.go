package cmd

import (
	"github.com/hyp3rd/ewrap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/utils"
)

func errorf(format string, args ...any) error { return ewrap.Newf(format, args...) }

// formatExt maps an output format to the file extension used by analyze-batch.
func formatExt(format string) (string, error) {
	switch format {
	case "json":
		return ".json", nil
	case "yaml", "yml":
		return ".yaml", nil
	case "markdown", "md", "":
		return ".md", nil
	default:
		return "", errorf("unsupported --format: %s (use json|yaml|markdown)", format)
	}
}

// renderInsights encodes the insights for name in the requested format.
func renderInsights(in *analysis.Insights, name, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.PrettyJSON(in)
	case "yaml", "yml":
		b, err := yaml.Marshal(in)
		if err != nil {
			return nil, ewrap.Wrap(err, "marshal yaml")
		}
		return b, nil
	case "markdown", "md", "":
		return []byte(in.Markdown(name)), nil
	default:
		return nil, errorf("unsupported --format: %s (use json|yaml|markdown)", format)
	}
}
