package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 10 || cfg.RequestTimeout != 15*time.Second || cfg.CacheBackend != BackendSQLite {
		t.Errorf("cfg = %+v", cfg)
	}
	if strings.HasPrefix(cfg.DBPath, "~") || strings.HasPrefix(cfg.LogDir, "~") {
		t.Errorf("paths not expanded: %s %s", cfg.DBPath, cfg.LogDir)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := "api-url: https://api.example.com/v1\npage-size: 20\ncache-backend: memory\ndraft-debounce: 250ms\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMPAIGNDESK_TOKEN", "from-env")
	t.Setenv("CAMPAIGNDESK_PAGE_SIZE", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://api.example.com/v1" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Token != "from-env" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.PageSize != 5 {
		t.Errorf("PageSize = %d, env should win over file", cfg.PageSize)
	}
	if cfg.CacheBackend != BackendMemory || cfg.DraftDebounce != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad backend", "cache-backend: etcd\n"},
		{"zero page size", "page-size: 0\n"},
		{"broken yaml", "page-size: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			os.WriteFile(path, []byte(tt.yml), 0o600)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("second WriteDefault should refuse to overwrite")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if cfg.RequestTimeout != def.RequestTimeout || cfg.DraftDebounce != def.DraftDebounce || cfg.MockSeed != def.MockSeed {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestMarshalMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Token = "abc"
	cfg.RedisPassword = "pw"
	data, err := Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "abc") || strings.Contains(string(data), ": pw") {
		t.Errorf("secret leaked:\n%s", data)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	got, _ := ExpandHome("~/x/y")
	if got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got, _ := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
	if got, _ := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("ExpandHome(~user/x) = %q", got)
	}
}
