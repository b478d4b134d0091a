package backup

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func setModTime(t *testing.T, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
}

func TestArchiveName(t *testing.T) {
	createdAt := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	got := ArchiveName(createdAt)
	want := "backup_20240102_150405.zip"
	if got != want {
		t.Errorf("ArchiveName() = %q, want %q", got, want)
	}
}

func TestScanCandidates(t *testing.T) {
	t.Run("zero watermark selects every regular file", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, filepath.Join(src, "a.txt"), "x")
		writeFile(t, filepath.Join(src, "nested", "deep", "b.txt"), "y")
		writeFile(t, filepath.Join(src, "empty.txt"), "")

		candidates, err := scanCandidates(src, time.Time{})
		if err != nil {
			t.Fatalf("scanCandidates() error = %v", err)
		}
		if len(candidates) != 3 {
			t.Fatalf("got %d candidates, want 3", len(candidates))
		}

		rels := make(map[string]bool)
		for _, c := range candidates {
			rels[c.relPath] = true
		}
		for _, want := range []string{"a.txt", "nested/deep/b.txt", "empty.txt"} {
			if !rels[want] {
				t.Errorf("candidate %q missing, got %v", want, rels)
			}
		}
	})

	t.Run("watermark excludes files modified at or before it", func(t *testing.T) {
		src := t.TempDir()
		watermark := time.Now().Add(-time.Hour)

		old := filepath.Join(src, "old.txt")
		writeFile(t, old, "old")
		setModTime(t, old, watermark.Add(-time.Minute))

		boundary := filepath.Join(src, "boundary.txt")
		writeFile(t, boundary, "boundary")
		setModTime(t, boundary, watermark) // equal, not greater: excluded

		fresh := filepath.Join(src, "fresh.txt")
		writeFile(t, fresh, "fresh")
		setModTime(t, fresh, watermark.Add(time.Minute))

		candidates, err := scanCandidates(src, watermark)
		if err != nil {
			t.Fatalf("scanCandidates() error = %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("got %d candidates, want 1", len(candidates))
		}
		if candidates[0].relPath != "fresh.txt" {
			t.Errorf("candidate = %q, want %q", candidates[0].relPath, "fresh.txt")
		}
	})

	t.Run("symlinks are not candidates", func(t *testing.T) {
		src := t.TempDir()
		target := filepath.Join(src, "real.txt")
		writeFile(t, target, "content")
		if err := os.Symlink(target, filepath.Join(src, "link.txt")); err != nil {
			t.Skipf("symlinks not supported here: %v", err)
		}

		candidates, err := scanCandidates(src, time.Time{})
		if err != nil {
			t.Fatalf("scanCandidates() error = %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("got %d candidates, want 1 (symlink must be excluded)", len(candidates))
		}
		if candidates[0].relPath != "real.txt" {
			t.Errorf("candidate = %q, want %q", candidates[0].relPath, "real.txt")
		}
	})

	t.Run("missing source root is an error", func(t *testing.T) {
		if _, err := scanCandidates(filepath.Join(t.TempDir(), "nope"), time.Time{}); err == nil {
			t.Fatal("scanCandidates() error = nil, want error")
		}
	})
}

func TestWriteArchive(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "x")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "hello world")

	candidates, err := scanCandidates(src, time.Time{})
	if err != nil {
		t.Fatalf("scanCandidates() error = %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "backup_test.zip")
	size, err := writeArchive(archivePath, candidates)
	if err != nil {
		t.Fatalf("writeArchive() error = %v", err)
	}
	if size <= 0 {
		t.Errorf("writeArchive() size = %d, want > 0", size)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer zr.Close()

	want := map[string]string{"a.txt": "x", "sub/b.txt": "hello world"}
	if len(zr.File) != len(want) {
		t.Fatalf("archive has %d entries, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		content, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected entry %q", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("entry Open() error = %v", err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("entry ReadAll() error = %v", err)
		}
		if string(got) != content {
			t.Errorf("entry %q content = %q, want %q", f.Name, got, content)
		}
	}
}

func TestWriteArchive_NeverOverwrites(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "x")
	candidates, err := scanCandidates(src, time.Time{})
	if err != nil {
		t.Fatalf("scanCandidates() error = %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "backup_test.zip")
	if _, err := writeArchive(archivePath, candidates); err != nil {
		t.Fatalf("writeArchive() error = %v", err)
	}
	original, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	writeFile(t, filepath.Join(src, "a.txt"), "changed")
	if _, err := writeArchive(archivePath, candidates); !errors.Is(err, os.ErrExist) {
		t.Fatalf("writeArchive() to existing path error = %v, want os.ErrExist", err)
	}
	after, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(original, after) {
		t.Error("existing archive was modified by a colliding write")
	}
}

func TestWriteArchive_MissingFileAborts(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "backup_test.zip")
	_, err := writeArchive(archivePath, []candidate{{absPath: "/does/not/exist", relPath: "gone.txt"}})
	if err == nil {
		t.Fatal("writeArchive() error = nil, want error")
	}
}
