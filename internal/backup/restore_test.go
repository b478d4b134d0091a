package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// makeZip builds a zip archive at path with the given name→content entries.
func makeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create() error = %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write() error = %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file Close() error = %v", err)
	}
}

func checkFile(t *testing.T, path string, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s content = %q, want %q", path, got, want)
	}
}

func TestRestore(t *testing.T) {
	t.Run("extracts all entries at their relative paths", func(t *testing.T) {
		archivePath := filepath.Join(t.TempDir(), "backup.zip")
		makeZip(t, archivePath, map[string]string{
			"a.txt":            "x",
			"nested/deep/b.txt": "y",
			"empty.txt":        "",
		})

		dest := t.TempDir()
		if err := Restore(archivePath, dest, nil); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}

		checkFile(t, filepath.Join(dest, "a.txt"), "x")
		checkFile(t, filepath.Join(dest, "nested", "deep", "b.txt"), "y")
		checkFile(t, filepath.Join(dest, "empty.txt"), "")
	})

	t.Run("restoring twice yields the same file set", func(t *testing.T) {
		archivePath := filepath.Join(t.TempDir(), "backup.zip")
		makeZip(t, archivePath, map[string]string{"a.txt": "x"})

		dest := t.TempDir()
		if err := Restore(archivePath, dest, nil); err != nil {
			t.Fatalf("first Restore() error = %v", err)
		}
		// Scribble over the restored file, then restore again.
		writeFile(t, filepath.Join(dest, "a.txt"), "scribbled")
		if err := Restore(archivePath, dest, nil); err != nil {
			t.Fatalf("second Restore() error = %v", err)
		}
		checkFile(t, filepath.Join(dest, "a.txt"), "x")
	})

	t.Run("invokes onLog per entry and on completion", func(t *testing.T) {
		archivePath := filepath.Join(t.TempDir(), "backup.zip")
		makeZip(t, archivePath, map[string]string{"a.txt": "x", "b.txt": "y"})

		var lines []string
		err := Restore(archivePath, t.TempDir(), func(msg string) { lines = append(lines, msg) })
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if len(lines) != 3 { // two entries + completion
			t.Fatalf("got %d log lines, want 3: %v", len(lines), lines)
		}
		if !strings.Contains(lines[len(lines)-1], "Restore complete") {
			t.Errorf("last line = %q, want completion notice", lines[len(lines)-1])
		}
	})

	t.Run("rejects path-escaping entry names", func(t *testing.T) {
		archivePath := filepath.Join(t.TempDir(), "evil.zip")
		makeZip(t, archivePath, map[string]string{"../evil.txt": "pwned"})

		parent := t.TempDir()
		dest := filepath.Join(parent, "dest")
		err := Restore(archivePath, dest, nil)
		if err == nil {
			t.Fatal("Restore() error = nil, want zip-slip rejection")
		}
		if _, statErr := os.Stat(filepath.Join(parent, "evil.txt")); !os.IsNotExist(statErr) {
			t.Error("escaping entry was written outside the destination")
		}
	})

	t.Run("missing archive is an error", func(t *testing.T) {
		err := Restore(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir(), nil)
		if err == nil {
			t.Fatal("Restore() error = nil, want error")
		}
	})
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "x")
	writeFile(t, filepath.Join(src, "docs", "readme.md"), "# hello")
	writeFile(t, filepath.Join(src, "docs", "img", "logo.bin"), string([]byte{0, 1, 2, 255}))

	candidates, err := scanCandidates(src, time.Time{})
	if err != nil {
		t.Fatalf("scanCandidates() error = %v", err)
	}
	archivePath := filepath.Join(t.TempDir(), ArchiveName(time.Now()))
	if _, err := writeArchive(archivePath, candidates); err != nil {
		t.Fatalf("writeArchive() error = %v", err)
	}

	dest := t.TempDir()
	if err := Restore(archivePath, dest, nil); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	checkFile(t, filepath.Join(dest, "a.txt"), "x")
	checkFile(t, filepath.Join(dest, "docs", "readme.md"), "# hello")
	checkFile(t, filepath.Join(dest, "docs", "img", "logo.bin"), string([]byte{0, 1, 2, 255}))
}
