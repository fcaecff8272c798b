package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	p := cfg.Pipeline
	if !p.FastIntents || !p.FastSQL || !p.LLMRouting || !p.StrictMode {
		t.Errorf("default pipeline should enable every stage, got %+v", p)
	}
	if p.MaxRows != DefaultMaxRows {
		t.Errorf("MaxRows = %d, want %d", p.MaxRows, DefaultMaxRows)
	}
	if p.AgentMaxPromptLen != DefaultAgentMaxPromptLen {
		t.Errorf("AgentMaxPromptLen = %d, want %d", p.AgentMaxPromptLen, DefaultAgentMaxPromptLen)
	}
	if cfg.LLM.Adapter != "openai" {
		t.Errorf("LLM.Adapter = %q, want openai", cfg.LLM.Adapter)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database: /data/atlas.db
grounding: /data/grounding.json
log_level: debug
llm:
  adapter: mock
  model: mock-1
pipeline:
  fast_intents: true
  fast_sql: false
  llm_routing: false
  strict_mode: true
  max_rows: 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DatabasePath != "/data/atlas.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Pipeline.FastSQL || cfg.Pipeline.LLMRouting {
		t.Errorf("pipeline flags not honored: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MaxRows != 100 {
		t.Errorf("MaxRows = %d, want 100", cfg.Pipeline.MaxRows)
	}
	if cfg.LLM.Adapter != "mock" {
		t.Errorf("LLM.Adapter = %q, want mock", cfg.LLM.Adapter)
	}
}

func TestLoadFile_EnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database: /data/file.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FLOORSENSE_DB", "/env/override.db")
	t.Setenv("FLOORSENSE_STRICT_MODE", "0")
	t.Setenv("FLOORSENSE_MAX_ROWS", "42")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DatabasePath != "/env/override.db" {
		t.Errorf("env precedence failed: DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Pipeline.StrictMode {
		t.Error("FLOORSENSE_STRICT_MODE=0 not applied")
	}
	if cfg.Pipeline.MaxRows != 42 {
		t.Errorf("MaxRows = %d, want 42", cfg.Pipeline.MaxRows)
	}
}
