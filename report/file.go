package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/reelscore/models"
)

// renameFunc is swapped in tests.
var renameFunc = os.Rename

// WriteFile serializes rep to path atomically: the report is written to a
// temporary file in the same directory and renamed over path. "-" writes
// to stdout.
func WriteFile(path, format string, rep *models.Report) error {
	var buf bytes.Buffer
	if err := Write(format, &buf, rep); err != nil {
		return err
	}
	if path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("report: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("report: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("report: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("report: chmod temp file: %w", err)
	}
	if err := renameFunc(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("report: rename into place: %w", err)
	}
	return nil
}
