package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reading-assessment-service/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestImportThenExportWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "store:\n  backend: sqlite\n  sqlite_path: "+filepath.Join(dir, "data", "test.db")+"\nlog:\n  level: error\n")

	good := filepath.Join(dir, "3-Fables.csv")
	writeFile(t, good, "题号,答案,题目\n1,A,Who?\n2,b,Why?\n")
	partial := filepath.Join(dir, "4-Poems.csv")
	writeFile(t, partial, "number,answer,question\n1,A,First\n2,,Second\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "import", good, partial})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected partial file rejected, got %v", err)
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "import", "--force", partial})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("forced import: %v", err)
	}

	var out bytes.Buffer
	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "export"})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	var bundle domain.DataBundle
	if err := json.Unmarshal(out.Bytes(), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.AnswersDatabase["3-Fables"].Answers[1] != "B" {
		t.Fatalf("expected Fables bank exported, got %+v", bundle.AnswersDatabase)
	}
	if _, ok := bundle.AnswersDatabase["4-Poems"]; !ok {
		t.Fatalf("expected forced Poems bank exported")
	}

	bundlePath := filepath.Join(dir, "bundle.json")
	writeFile(t, bundlePath, `{"booksDatabase":{"6":["Odes"]},"answersDatabase":{"6-Odes":{"questions":["Q"],"answers":["C"]}}}`)
	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "restore", bundlePath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("restore: %v", err)
	}
}
