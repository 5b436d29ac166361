package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSpecsSingleAndList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reviewer.yaml", `
id: code-reviewer
skills: [review]
scopes: [moduleA]
critical: true
`)
	writeFile(t, dir, "team.yml", `
workers:
  - id: test-gen
    skills: [testing]
    scopes: [moduleA]
  - id: researcher
    skills: [research]
`)
	writeFile(t, dir, "notes.txt", "ignored")

	specs, err := LoadSpecs(dir)
	if err != nil {
		t.Fatalf("LoadSpecs: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("loaded %d specs, want 3", len(specs))
	}
	if specs[0].ID != "code-reviewer" || !specs[0].Critical {
		t.Errorf("first spec = %+v, want the single-file reviewer with critical set", specs[0])
	}
	if specs[1].ID != "test-gen" || specs[2].ID != "researcher" {
		t.Errorf("list specs out of order: %v, %v", specs[1].ID, specs[2].ID)
	}
}

func TestLoadSpecsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "id: nameless\n")
	if _, err := LoadSpecs(dir); err == nil {
		t.Error("spec without skills should fail the load")
	}
}

func TestLoadSpecsRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: dup\nskills: [x]\n")
	writeFile(t, dir, "b.yaml", "id: dup\nskills: [y]\n")
	if _, err := LoadSpecs(dir); err == nil {
		t.Error("duplicate worker ids across files should fail the load")
	}
}
