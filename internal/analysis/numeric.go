package analysis

import (
	"strconv"
	"strings"
)

// DefaultZThreshold is the |z| above which a value is reported as an anomaly.
const DefaultZThreshold = 3.0

// Options controls how tables are read and analyzed.
type Options struct {
	// Delimiter for CSV. If 0, picked from the file name (tab for .tsv, comma otherwise).
	Delimiter rune
	// DecimalSeparator for numeric cells. 0 means '.'.
	DecimalSeparator rune
	// ThousandsSeparator is stripped from numeric cells when set.
	ThousandsSeparator rune
	// ZThreshold flags a row when |value-mean|/std exceeds it. 0 means DefaultZThreshold.
	ZThreshold float64
	// MissingTokens replaces the default NA markers when non-nil.
	MissingTokens []string
}

// DefaultOptions returns the options used by the HTTP endpoint.
func DefaultOptions() Options {
	return Options{
		DecimalSeparator: '.',
		ZThreshold:       DefaultZThreshold,
	}
}

func (o Options) threshold() float64 {
	if o.ZThreshold <= 0 {
		return DefaultZThreshold
	}
	return o.ZThreshold
}

// defaultMissing mirrors the NA markers most CSV tooling recognizes.
var defaultMissing = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

type missingSet map[string]struct{}

func newMissingSet(tokens []string) missingSet {
	if tokens == nil {
		tokens = defaultMissing
	}
	set := make(missingSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func (m missingSet) has(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return true
	}
	_, ok := m[v]
	return ok
}

// parseNumeric converts a cell to float64 using the configured separators.
// Hex literals and digit separators accepted by strconv are rejected.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || strings.ContainsAny(raw, "xX_") {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.ContainsRune(raw, '.') {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
