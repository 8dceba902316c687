// Package archive extracts and repacks zip-contained DICOM file sets while
// preserving every member's relative path.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsZip reports whether the file at path is a zip archive.
func IsZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// Extract unpacks the archive into destDir, preserving relative paths, and
// returns the extracted file paths in sorted order.
func Extract(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, member := range r.File {
		if err := extractMember(member, destDir); err != nil {
			return nil, err
		}
	}
	return List(destDir)
}

func extractMember(member *zip.File, destDir string) error {
	rel := filepath.Clean(member.Name)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("archive member %q escapes extraction root", member.Name)
	}
	dest := filepath.Join(destDir, rel)
	if member.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating member directory: %w", err)
	}
	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("opening member %s: %w", member.Name, err)
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extracting %s: %w", member.Name, err)
	}
	return nil
}

// List returns every regular file under root, recursively, in sorted order.
func List(root string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	return files, nil
}

// Replace deletes the archive at zipPath and writes a new deflate-compressed
// archive containing exactly the given files, with paths stored relative to
// rootDir. Deleting only immediately before writing keeps the original intact
// if an earlier step failed.
func Replace(zipPath, rootDir string, files []string) (string, error) {
	if _, err := os.Stat(zipPath); err == nil {
		if err := os.Remove(zipPath); err != nil {
			return "", fmt.Errorf("removing original archive: %w", err)
		}
	}
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating archive %s: %w", zipPath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, path := range files {
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return "", fmt.Errorf("relativizing %s: %w", path, err)
		}
		if err := addMember(w, path, filepath.ToSlash(rel)); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	return zipPath, nil
}

func addMember(w *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	dst, err := w.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding member %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writing member %s: %w", name, err)
	}
	return nil
}
