package edit

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radstack/dicomsync/archive"
	"github.com/radstack/dicomsync/header"
)

func TestApplyUpdatesValue(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))

	target := extractHeader(t, path)
	target["SeriesDescription"] = "renamed series"

	out, err := Apply(path, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, path, out)

	after := extractHeader(t, path)
	assert.Equal(t, "renamed series", after["SeriesDescription"])
	assert.Equal(t, "MR", after["Modality"], "untouched keywords survive the rewrite")
	assert.Equal(t, "patient-1", after["PatientID"])
}

func TestApplyInsertsMissingTag(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))

	target := extractHeader(t, path)
	require.NotContains(t, target, "BitsAllocated")
	target["BitsAllocated"] = 16

	out, err := Apply(path, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, path, out)

	assert.Equal(t, 16, extractHeader(t, path)["BitsAllocated"])
}

func TestApplyNoChangesLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	target := extractHeader(t, path)
	before := readBytes(t, path)

	out, err := Apply(path, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, path, out)
	assert.Equal(t, before, readBytes(t, path))
}

func TestApplyUnsafeReturnsOriginalUntouched(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	before := readBytes(t, path)

	target := header.Dict{
		"Modality":          "CT",
		"PatientID":         "someone-else",
		"PatientName":       "Other^Person",
		"SeriesInstanceUID": "9.9.9",
		"StudyDate":         "19990101",
		"SeriesDescription": "different series",
	}

	out, err := Apply(path, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err, "an unsafe verdict is a rejection, not a failure")
	assert.Equal(t, path, out)
	assert.Equal(t, before, readBytes(t, path))
}

func buildSeriesZip(t *testing.T, dir string) string {
	t.Helper()
	stage := filepath.Join(dir, "stage")
	require.NoError(t, os.MkdirAll(filepath.Join(stage, "series"), 0o755))
	newTestDICOM(t, filepath.Join(stage, "series"), "1.dcm", seriesElements(map[string]any{
		"InstanceNumber": []string{"1"},
		"SOPInstanceUID": []string{"1.2.3.4.5.6.1"},
	}))
	newTestDICOM(t, filepath.Join(stage, "series"), "2.dcm", seriesElements(map[string]any{
		"InstanceNumber": []string{"2"},
		"SOPInstanceUID": []string{"1.2.3.4.5.6.2"},
	}))

	zipPath := filepath.Join(dir, "series.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()
	w := zip.NewWriter(f)
	for _, name := range []string{"series/1.dcm", "series/2.dcm"} {
		dst, err := w.Create(name)
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(stage, filepath.FromSlash(name)))
		require.NoError(t, err)
		_, err = dst.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestApplyZipUpdatesEveryMember(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildSeriesZip(t, dir)

	target := header.Dict{
		"Modality":          "MR",
		"PatientID":         "patient-1",
		"PatientName":       "Doe^Jane",
		"SeriesInstanceUID": "1.2.3.4.5",
		"StudyDate":         "20240115",
		"SeriesDescription": "renamed series",
	}

	out, err := Apply(zipPath, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, zipPath, out)

	redo := filepath.Join(dir, "redo")
	files, err := archive.Extract(zipPath, redo)
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, f := range files {
		d := extractHeader(t, f)
		assert.Equal(t, "renamed series", d["SeriesDescription"])
	}
	// Per-member identity survives the rewrite.
	assert.Equal(t, 1, extractHeader(t, files[0])["InstanceNumber"])
	assert.Equal(t, 2, extractHeader(t, files[1])["InstanceNumber"])
}

func TestApplyZipNoChangesIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildSeriesZip(t, dir)
	before := readBytes(t, zipPath)

	target := header.Dict{
		"Modality":          "MR",
		"PatientID":         "patient-1",
		"PatientName":       "Doe^Jane",
		"SeriesInstanceUID": "1.2.3.4.5",
		"StudyDate":         "20240115",
		"SeriesDescription": "ax t1",
	}

	out, err := Apply(zipPath, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, zipPath, out)
	assert.Equal(t, before, readBytes(t, zipPath), "no diff means no repack")
}

func TestApplyZipUnsafeReturnsOriginal(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildSeriesZip(t, dir)
	before := readBytes(t, zipPath)

	target := header.Dict{
		"Modality":          "CT",
		"PatientID":         "someone-else",
		"PatientName":       "Other^Person",
		"SeriesInstanceUID": "9.9.9",
		"StudyDate":         "19990101",
		"SeriesDescription": "different series",
	}

	out, err := Apply(zipPath, target, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, zipPath, out)
	assert.Equal(t, before, readBytes(t, zipPath))
}
