package edit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/radstack/dicomsync/archive"
	"github.com/radstack/dicomsync/header"
)

// Apply reconciles the artifact at path, a single DICOM file or a zip
// archive of them, with the target header. Returns the original path when
// no update is needed or the update is rejected as unsafe, the same path
// with contents replaced when a commit succeeds, and an error when the
// artifact cannot be opened or verified at all.
func Apply(path string, target header.Dict, opts Options) (string, error) {
	if archive.IsZip(path) {
		return applyZip(path, target, opts)
	}
	u := NewUpdater([]string{path}, target, opts)
	if _, err := u.Update(); err != nil {
		if errors.Is(err, ErrUnsafe) {
			return path, nil
		}
		return "", err
	}
	return path, nil
}

func applyZip(zipPath string, target header.Dict, opts Options) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// The extraction directory is owned by this call alone and released on
	// every exit path.
	tmpDir, err := os.MkdirTemp(opts.ScratchDir, "dicomsync-*")
	if err != nil {
		return "", fmt.Errorf("creating extraction directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	logger.Info("extracting archive", slog.String("path", zipPath))
	files, err := archive.Extract(zipPath, tmpDir)
	if err != nil {
		return "", err
	}

	u := NewUpdater(files, target, opts)
	if _, err := u.Update(); err != nil {
		if errors.Is(err, ErrUnsafe) {
			return zipPath, nil
		}
		return "", err
	}
	if len(u.UpdateSet()) == 0 {
		// Nothing was written: leave the archive byte-identical.
		return zipPath, nil
	}
	// Replace the archive with the same relative-path layout and member
	// list; failed members are included as their originals.
	return archive.Replace(zipPath, tmpDir, files)
}
