package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Restore extracts every entry of the archive into destDir, recreating
// subdirectories as needed and overwriting existing files. It is stateless
// and independent of any running session; concurrent restores into distinct
// destinations are safe.
//
// The first entry that fails to read or write aborts the restore; files
// already extracted are left in place and the error reports how far the
// restore got. onLog (may be nil) is invoked per extracted entry and on
// completion.
func Restore(archivePath, destDir string, onLog func(string)) error {
	if onLog == nil {
		onLog = func(string) {}
	}

	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer zipReader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	for i, f := range zipReader.File {
		if err := extractEntry(f, destDir); err != nil {
			return fmt.Errorf("restore aborted at entry %d of %d (%s): %w", i+1, len(zipReader.File), f.Name, err)
		}
		onLog(fmt.Sprintf("Restored %s", f.Name))
	}

	onLog(fmt.Sprintf("Restore complete: %d entries extracted to %s.", len(zipReader.File), destDir))
	return nil
}

// extractEntry writes one archive entry under destDir.
func extractEntry(f *zip.File, destDir string) error {
	fpath := filepath.Join(destDir, f.Name)

	// Prevent ZipSlip vulnerability
	if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("invalid file path in zip: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(fpath, os.ModePerm)
	}

	if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
		return err
	}

	outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		outFile.Close()
		return err
	}

	_, copyErr := io.Copy(outFile, rc)
	rc.Close()
	if closeErr := outFile.Close(); copyErr == nil {
		copyErr = closeErr
	}
	return copyErr
}
