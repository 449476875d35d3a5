package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhaozkTHU/oj/internal/models"
)

func TestProblemByIDFindsNonSequentialID(t *testing.T) {
	cfg := &Config{
		Problems: []models.Problem{
			{ID: 1000, Name: "a"},
			{ID: 3, Name: "b"},
		},
	}

	idx, p, ok := cfg.ProblemByID(3)
	if !ok {
		t.Fatal("expected problem 3 to be found")
	}
	if idx != 1 {
		t.Fatalf("got catalog index %d, want 1", idx)
	}
	if p.Name != "b" {
		t.Fatalf("got name %q, want %q", p.Name, "b")
	}

	if _, _, ok := cfg.ProblemByID(999); ok {
		t.Fatal("expected problem 999 to be absent")
	}
}

func TestLanguageByName(t *testing.T) {
	cfg := &Config{
		Languages: []models.Language{
			{Name: "cpp", FileName: "main.cpp", Command: []string{"g++", "%INPUT%", "-o", "%OUTPUT%"}},
		},
	}

	lang, ok := cfg.LanguageByName("cpp")
	if !ok {
		t.Fatal("expected language cpp to be found")
	}
	if lang.FileName != "main.cpp" {
		t.Fatalf("got file_name %q, want main.cpp", lang.FileName)
	}

	if _, ok := cfg.LanguageByName("rust"); ok {
		t.Fatal("expected language rust to be absent")
	}
}

func TestLoadParsesConfigDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := `{
		"server": {"bind_address": "127.0.0.1", "bind_port": 8080},
		"problems": [{"id": 1, "name": "p", "type": "standard", "misc": {}, "cases": []}],
		"languages": [{"name": "cpp", "file_name": "main.cpp", "command": ["g++", "%INPUT%", "-o", "%OUTPUT%"]}]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BindPort != 8080 {
		t.Fatalf("got bind_port %d, want 8080", cfg.Server.BindPort)
	}
	if len(cfg.Problems) != 1 || cfg.Problems[0].ID != 1 {
		t.Fatalf("unexpected problems: %+v", cfg.Problems)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.json"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
