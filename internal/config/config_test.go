package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ListenAddr != ":8000" || c.MaxUploadMB != 10 || c.ZThreshold != 3.0 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.LogFormat != "json" || c.LogLevel != "info" || c.ServiceName != "docloom-insights" {
		t.Fatalf("unexpected logging defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := &Global{
		ListenAddr:         "127.0.0.1:9100",
		MaxUploadMB:        2,
		ZThreshold:         2.5,
		Delimiter:          ";",
		DecimalSeparator:   ",",
		ThousandsSeparator: ".",
		LogLevel:           "debug",
		LogFormat:          "console",
		CORSAllowOrigins:   []string{"https://example.org"},
	}
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ListenAddr != c.ListenAddr || got.MaxUploadMB != 2 || got.ZThreshold != 2.5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.CORSAllowOrigins) != 1 || got.CORSAllowOrigins[0] != "https://example.org" {
		t.Fatalf("cors origins = %v", got.CORSAllowOrigins)
	}
	opt, err := got.ParserOptions()
	if err != nil {
		t.Fatalf("parser options: %v", err)
	}
	if opt.Delimiter != ';' || opt.DecimalSeparator != ',' || opt.ThousandsSeparator != '.' || opt.ZThreshold != 2.5 {
		t.Fatalf("parser options = %+v", opt)
	}
}

func TestSaveDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := Save(&Global{ListenAddr: ":1234"}, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".docloom-insights", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ListenAddr != ":1234" {
		t.Fatalf("listen_addr = %q", c.ListenAddr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCLOOM_INSIGHTS_LISTEN_ADDR", ":9999")
	t.Setenv("DOCLOOM_INSIGHTS_Z_THRESHOLD", "2")
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ListenAddr != ":9999" || c.ZThreshold != 2 {
		t.Fatalf("env not applied: %+v", c)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Global {
		return &Global{MaxUploadMB: 1, ZThreshold: 3, LogFormat: "json", DecimalSeparator: "."}
	}
	cases := map[string]func(*Global){
		"zero upload":        func(c *Global) { c.MaxUploadMB = 0 },
		"negative threshold": func(c *Global) { c.ZThreshold = -1 },
		"log format":         func(c *Global) { c.LogFormat = "xml" },
		"long delimiter":     func(c *Global) { c.Delimiter = ";;" },
		"same separators":    func(c *Global) { c.ThousandsSeparator = "." },
		"negative timeout":   func(c *Global) { c.ReadTimeoutSec = -1 },
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base should validate: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseRune(t *testing.T) {
	cases := map[string]rune{"": 0, "tab": '\t', `\t`: '\t', ";": ';', "|": '|'}
	for in, want := range cases {
		got, err := ParseRune("delimiter", in)
		if err != nil || got != want {
			t.Fatalf("ParseRune(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRune("delimiter", "ab"); err == nil {
		t.Fatalf("expected error for multi-character value")
	}
}
