package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aicore/internal/common/fsutil"
)

// backupTimeFormat matches the timestamped backups the deployment tooling
// has always written next to the active file.
const backupTimeFormat = "20060102_150405"

// Save validates f and writes it to path atomically.
func Save(path string, f *File) error {
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return err
	}
	b, err := f.Encode()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, b, 0o644)
}

// Backup copies the active file to a timestamped sibling and returns the
// backup path.
func Backup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no active config to back up: %w", err)
	}
	dst := fmt.Sprintf("%s.backup.%s", path, time.Now().Format(backupTimeFormat))
	if err := fsutil.CopyFile(path, dst); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return dst, nil
}

// Backups lists backup files for path, newest first.
func Backups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + ".backup."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	// Timestamp suffixes sort lexicographically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Update replaces the active file with the contents of src. The candidate is
// validated first and the current file is backed up; a bad candidate never
// replaces a working config.
func Update(path, src string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read candidate config: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return fmt.Errorf("candidate config rejected: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := Backup(path); err != nil {
			return err
		}
	}
	return Save(path, f)
}

// Restore replaces the active file with a backup. With backup == "" the most
// recent backup is used. The backup is validated and the current file backed
// up before the swap.
func Restore(path, backup string) error {
	if backup == "" {
		list, err := Backups(path)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("no backups found for %s", path)
		}
		backup = list[0]
	}
	b, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return fmt.Errorf("backup rejected: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := Backup(path); err != nil {
			return err
		}
	}
	return Save(path, f)
}
