package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aicore/pkg/types"
)

func activeConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, t.TempDir(), sampleConfig)
}

func TestBackupAndList(t *testing.T) {
	p := activeConfig(t)
	b1, err := Backup(p)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.Contains(filepath.Base(b1), "models.json.backup.") {
		t.Fatalf("backup name=%s", b1)
	}
	list, err := Backups(p)
	if err != nil || len(list) != 1 || list[0] != b1 {
		t.Fatalf("backups=%v err=%v", list, err)
	}
}

func TestBackupWithoutActiveFile(t *testing.T) {
	if _, err := Backup(filepath.Join(t.TempDir(), "models.json")); err == nil {
		t.Fatalf("expected error for missing active config")
	}
}

func TestUpdateValidatesBeforeReplacing(t *testing.T) {
	p := activeConfig(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"models": {}}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Update(p, bad); err == nil {
		t.Fatalf("expected rejection of invalid candidate")
	}
	// active file untouched
	if f, err := Load(p); err != nil || len(f.Models) != 2 {
		t.Fatalf("active config damaged: %v", err)
	}
	// and no backup taken for a rejected update
	if list, _ := Backups(p); len(list) != 0 {
		t.Fatalf("backup written for rejected update: %v", list)
	}
}

func TestUpdateReplacesAndBacksUp(t *testing.T) {
	p := activeConfig(t)
	next := filepath.Join(t.TempDir(), "next.json")
	body := `{"models": {"solo": {"path": "org/solo"}}, "default_model": "solo"}`
	if err := os.WriteFile(next, []byte(body), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Update(p, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	f, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.Models) != 1 || f.DefaultModel != "solo" {
		t.Fatalf("update not applied: %+v", f)
	}
	list, _ := Backups(p)
	if len(list) != 1 {
		t.Fatalf("expected one backup, got %v", list)
	}
}

func TestRestoreLatestBackup(t *testing.T) {
	p := activeConfig(t)
	if _, err := Backup(p); err != nil {
		t.Fatalf("backup: %v", err)
	}
	// clobber the active file with a different valid config
	f := &File{Models: map[string]types.ModelConfig{"other": {Path: "org/other"}}}
	if err := Save(p, f); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Restore(p, ""); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := got.Models["mistral-7b-instruct"]; !ok {
		t.Fatalf("restore did not bring back original config: %+v", got)
	}
}

func TestRestoreWithoutBackups(t *testing.T) {
	p := activeConfig(t)
	if err := Restore(p, ""); err == nil || !strings.Contains(err.Error(), "no backups") {
		t.Fatalf("err=%v", err)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "models.json")
	if err := Save(p, &File{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("invalid config should not be written")
	}
}
