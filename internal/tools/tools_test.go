package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func writeToolFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeToolFile(t, `
tools:
  - name: read_file
    description: Read a file from the workspace
    parameters:
      properties:
        file_path:
          type: string
      required:
        - file_path
  - name: run_shell
    description: Run a shell command
    parameters:
      properties:
        command:
          type: string
`)
	specs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs", len(specs))
	}
	if specs[0].Name != "read_file" || specs[1].Name != "run_shell" {
		t.Errorf("order = %s, %s", specs[0].Name, specs[1].Name)
	}
	props, ok := specs[0].Schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties not a map: %T", specs[0].Schema["properties"])
	}
	if _, ok := props["file_path"]; !ok {
		t.Errorf("properties = %v", props)
	}
	req, ok := specs[0].Schema["required"].([]any)
	if !ok || len(req) != 1 || req[0] != "file_path" {
		t.Errorf("required = %v", specs[0].Schema["required"])
	}
}

func TestLoadEmptyName(t *testing.T) {
	path := writeToolFile(t, "tools:\n  - description: nameless\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadNilParameters(t *testing.T) {
	path := writeToolFile(t, "tools:\n  - name: ping\n    description: no params\n")
	specs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if specs[0].Schema == nil {
		t.Error("schema should be an empty map, not nil")
	}
}

func TestNames(t *testing.T) {
	path := writeToolFile(t, "tools:\n  - name: a\n  - name: b\n")
	specs, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got := Names(specs)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("names = %v", got)
	}
}
