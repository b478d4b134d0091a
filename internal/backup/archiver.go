package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// archiveTimeLayout is the timestamp embedded in archive file names,
// e.g. backup_20250114_033000.zip.
const archiveTimeLayout = "20060102_150405"

// Archive describes one backup archive written by a completed pass.
type Archive struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Path      string    `json:"-"` // Internal use, not exposed to client
	Size      int64     `json:"size"`
	FileCount int       `json:"fileCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArchiveName returns the file name for an archive created at the given time.
func ArchiveName(createdAt time.Time) string {
	return fmt.Sprintf("backup_%s.zip", createdAt.Format(archiveTimeLayout))
}

// nextArchiveName returns a suffixed name for a pass that lands in the same
// second as an earlier archive. Written archives are never overwritten.
func nextArchiveName(createdAt time.Time, seq int) string {
	return fmt.Sprintf("backup_%s_%d.zip", createdAt.Format(archiveTimeLayout), seq)
}

// candidate is one file selected for inclusion in the current pass.
type candidate struct {
	absPath string
	relPath string // relative to the source root, forward slashes
}

// scanCandidates walks the source tree and selects every regular file whose
// modification time is strictly after the watermark. A zero watermark means
// no backup has completed yet, so every regular file qualifies.
// Symlinks and other special files are never candidates.
func scanCandidates(sourceRoot string, watermark time.Time) ([]candidate, error) {
	var candidates []candidate
	err := filepath.Walk(sourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !watermark.IsZero() && !info.ModTime().After(watermark) {
			return nil
		}
		relPath, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{
			absPath: path,
			relPath: filepath.ToSlash(relPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning source tree: %w", err)
	}
	return candidates, nil
}

// writeArchive creates a zip archive at archivePath containing one entry per
// candidate, named by its relative path. Returns the size of the finished
// archive. The create is exclusive: an existing archive is never truncated,
// the caller gets os.ErrExist and picks another name. On any other error the
// caller is expected to remove the partial file.
func writeArchive(archivePath string, candidates []candidate) (int64, error) {
	archiveFile, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("creating archive file: %w", err)
	}

	zipWriter := zip.NewWriter(archiveFile)
	for _, c := range candidates {
		if err := addEntry(zipWriter, c); err != nil {
			zipWriter.Close()
			archiveFile.Close()
			return 0, err
		}
	}
	if err := zipWriter.Close(); err != nil {
		archiveFile.Close()
		return 0, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := archiveFile.Close(); err != nil {
		return 0, fmt.Errorf("closing archive file: %w", err)
	}

	fi, err := os.Stat(archivePath)
	if err != nil {
		return 0, fmt.Errorf("could not get archive file info: %w", err)
	}
	return fi.Size(), nil
}

// addEntry writes a single candidate's bytes into the zip.
func addEntry(zipWriter *zip.Writer, c candidate) error {
	writer, err := zipWriter.Create(c.relPath)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", c.relPath, err)
	}
	fileToZip, err := os.Open(c.absPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.absPath, err)
	}
	defer fileToZip.Close()
	if _, err := io.Copy(writer, fileToZip); err != nil {
		return fmt.Errorf("writing entry %s: %w", c.relPath, err)
	}
	return nil
}
