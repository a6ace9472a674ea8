package cmd

import (
	"context"
	"path/filepath"
	"testing"

	cfgpkg "github.com/KaramelBytes/docloom-insights/internal/config"
)

func TestConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	out := runCmd(t, "config", "set", "z_threshold", "2.5")
	mustContain(t, out, "Saved config")
	runCmd(t, "config", "set", "cors_allow_origins", "https://a.example, https://b.example")

	c, err := cfgpkg.Load(filepath.Join(home, ".docloom-insights", "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ZThreshold != 2.5 || len(c.CORSAllowOrigins) != 2 || c.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("saved config = %+v", c)
	}

	out = runCmd(t, "config", "show")
	mustContain(t, out, "z_threshold: 2.5", "listen_addr:", "- https://a.example")
}

func TestConfigSetExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	runCmd(t, "--config", path, "config", "set", "listen_addr", "127.0.0.1:9000")

	c, err := cfgpkg.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("listen_addr = %q", c.ListenAddr)
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	isolate(t)
	cases := [][]string{
		{"config", "set", "unknown_key", "1"},
		{"config", "set", "max_upload_mb", "lots"},
		{"config", "set", "max_upload_mb", "0"},
		{"config", "set", "z_threshold", "-2"},
		{"config", "set", "log_format", "xml"},
	}
	for _, args := range cases {
		if _, err := execute(context.Background(), args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
