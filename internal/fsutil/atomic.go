// Package fsutil provides crash-safe file replacement.
package fsutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// TempPrefix is the name prefix of in-flight temporary files. Directory
// listings that enumerate user data should skip entries carrying it.
const TempPrefix = ".bvm-tmp-"

// testHookBeforeRename runs between the temp file being fully written and the
// rename over the target. Tests use it to observe the target mid-write.
var testHookBeforeRename func(tempPath string)

// WriteFileAtomic replaces filename with data. Readers in other processes see
// either the previous content or the new content, never a partial write.
// The temp file is created in the target's directory so the rename stays on
// one filesystem.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove temporary file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %q: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if testHookBeforeRename != nil {
		testHookBeforeRename(tmp.Name())
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	success = true
	return nil
}
