package utils

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
)

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ewrap.Wrap(err, "mkdir output dir")
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ewrap.Wrap(err, "write temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ewrap.Wrap(err, "atomic rename")
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, ewrap.Wrap(err, "marshal json")
	}
	return b, nil
}

// UniquePath returns dir/base+suffix, or dir/base__N+suffix with the smallest
// N >= 2 that does not exist yet.
func UniquePath(dir, base, suffix string) string {
	p := filepath.Join(dir, base+suffix)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	for i := 2; ; i++ {
		p = filepath.Join(dir, base+"__"+strconv.Itoa(i)+suffix)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}
