package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvStorageDSN, "")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != DefaultConfig().HTTPPort {
		t.Fatalf("HTTPPort = %d, want %d", cfg.HTTPPort, DefaultConfig().HTTPPort)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvStorageDSN, "")
	writeConfig(t, tmpDir, `{"http_port": 9000, "storage_dsn": "memory://"}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 9000 {
		t.Fatalf("HTTPPort = %d, want %d", cfg.HTTPPort, 9000)
	}
	if cfg.StorageDSN != "memory://" {
		t.Fatalf("StorageDSN = %q, want memory://", cfg.StorageDSN)
	}
	if cfg.HTTPBind != "127.0.0.1" {
		t.Fatalf("HTTPBind = %q, want default", cfg.HTTPBind)
	}
}

func TestLoad_EnvOverridesDSN(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"storage_dsn": "memory://"}`)
	t.Setenv(EnvStorageDSN, "file:///tmp/groups.json")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageDSN != "file:///tmp/groups.json" {
		t.Fatalf("StorageDSN = %q, want env value", cfg.StorageDSN)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"max_tabs": 500}`},
		{"port type", `{"http_port": "8080"}`},
		{"port range", `{"http_port": 70000}`},
		{"log level", `{"log_level": "verbose"}`},
		{"s3 without bucket", `{"backup_s3": {"region": "us-east-1"}}`},
		{"disabled tools type", `{"disabled_tools": "group_evict"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.body)

			_, err := Load(tmpDir)
			if err == nil {
				t.Fatalf("Load() expected error for %s", tt.body)
			}
			if !strings.Contains(err.Error(), "invalid config") {
				t.Errorf("error = %v, want schema validation error", err)
			}
		})
	}
}

func TestLoad_BackupS3(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"backup_s3": {"bucket": "tabs", "prefix": "daily/", "endpoint": "http://localhost:9000", "path_style": true}}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackupS3 == nil {
		t.Fatal("BackupS3 = nil")
	}
	if cfg.BackupS3.Bucket != "tabs" || !cfg.BackupS3.PathStyle || cfg.BackupS3.Prefix != "daily/" {
		t.Errorf("BackupS3 = %+v", cfg.BackupS3)
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["group_evict", "group_import"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "group_evict" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "group_evict")
	}
	if cfg.DisabledTools[1] != "group_import" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "group_import")
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestResolveStorageDSN(t *testing.T) {
	cfg := &Config{}
	if got := cfg.ResolveStorageDSN("/data"); got != "sqlite:///data" {
		t.Errorf("ResolveStorageDSN() = %q, want sqlite:///data", got)
	}
	cfg.StorageDSN = "  memory:// "
	if got := cfg.ResolveStorageDSN("/data"); got != "memory://" {
		t.Errorf("ResolveStorageDSN() = %q, want memory://", got)
	}
}

func TestResolveBackupDir(t *testing.T) {
	cfg := &Config{}
	if got := cfg.ResolveBackupDir("/data"); got != filepath.Join("/data", "backups") {
		t.Errorf("ResolveBackupDir() = %q", got)
	}
	cfg.BackupDir = "/backups"
	if got := cfg.ResolveBackupDir("/data"); got != "/backups" {
		t.Errorf("ResolveBackupDir() = %q, want /backups", got)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{HTTPPort: 8742, DBMaxOpenConns: 5}
	overlay := &Config{HTTPPort: 9000} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, want 9000 (overlay)", result.HTTPPort)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"group_evict", "group_import"}}
	overlay := &Config{DisabledTools: []string{"group_import", " group_merge "}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"group_evict", "group_import", "group_merge"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}
