package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.SourceRoot != "." {
		t.Errorf("expected default source root '.', got %s", cfg.SourceRoot)
	}

	if cfg.Output.Dir != "build/tunables" {
		t.Errorf("expected default output dir 'build/tunables', got %s", cfg.Output.Dir)
	}

	if cfg.Output.Format != "json" {
		t.Errorf("expected default format 'json', got %s", cfg.Output.Format)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected default log level 'warn', got %s", cfg.LogLevel)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
source_root: ./pipeline
output:
  dir: dist
  format: yaml
log_level: debug
`
	os.WriteFile(filepath.Join(tmpDir, "tunables.yml"), []byte(configContent), 0644)

	cfg, err := LoadFrom(tmpDir)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.SourceRoot != "./pipeline" {
		t.Errorf("expected source root './pipeline', got %s", cfg.SourceRoot)
	}

	if cfg.Output.Dir != "dist" {
		t.Errorf("expected output dir 'dist', got %s", cfg.Output.Dir)
	}

	if cfg.Output.Format != "yaml" {
		t.Errorf("expected format 'yaml', got %s", cfg.Output.Format)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TUNABLES_OUTPUT_FORMAT", "yaml")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Output.Format != "yaml" {
		t.Errorf("expected format from environment, got %s", cfg.Output.Format)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad format", "output:\n  format: xml\n"},
		{"bad log level", "log_level: loud\n"},
		{"malformed yaml", "output: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			os.WriteFile(filepath.Join(tmpDir, "tunables.yml"), []byte(tt.content), 0644)

			if _, err := LoadFrom(tmpDir); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestGetProjectRoot(t *testing.T) {
	// Create nested directory structure
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)

	// Create project root with tunables.yml
	os.WriteFile(filepath.Join(tmpDir, "tunables.yml"), []byte(""), 0644)

	// Create nested subdirectory
	subDir := filepath.Join(tmpDir, "src", "deep", "nested")
	os.MkdirAll(subDir, 0755)
	os.Chdir(subDir)

	root, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected to find project root, got error: %v", err)
	}

	// On macOS, /tmp is symlinked to /private/tmp, so resolve both paths
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedTmpDir, _ := filepath.EvalSymlinks(tmpDir)

	if resolvedRoot != resolvedTmpDir {
		t.Errorf("expected project root to be %s, got %s", resolvedTmpDir, resolvedRoot)
	}
}
