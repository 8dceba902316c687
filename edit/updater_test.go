package edit

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radstack/dicomsync/header"
	"github.com/radstack/dicomsync/safety"
)

func extractHeader(t *testing.T, path string) header.Dict {
	t.Helper()
	d, err := header.NewExtractor(nil).Extract(path)
	require.NoError(t, err)
	return d
}

func TestUpdaterNoChanges(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	target := extractHeader(t, path)
	before := readBytes(t, path)

	u := NewUpdater([]string{path}, target, Options{ScratchDir: t.TempDir()})
	updated, err := u.Update()
	require.NoError(t, err)

	assert.Equal(t, []string{path}, updated)
	assert.Equal(t, before, readBytes(t, path), "a no-op update leaves the file byte-identical")
}

func TestUpdaterUnsafeRejected(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	target := header.Dict{
		"Modality":          "CT",
		"PatientID":         "someone-else",
		"PatientName":       "Other^Person",
		"SeriesInstanceUID": "9.9.9",
		"StudyDate":         "19990101",
		"SeriesDescription": "different series",
	}
	before := readBytes(t, path)

	metrics := &recordingMetrics{}
	u := NewUpdater([]string{path}, target, Options{Metrics: metrics, ScratchDir: t.TempDir()})
	_, err := u.Update()

	require.ErrorIs(t, err, ErrUnsafe)
	assert.Equal(t, []string{string(safety.ReasonMajorityDiffers)}, metrics.unsafeReasons)
	assert.Equal(t, before, readBytes(t, path))
}

func TestUpdaterVerificationFailureAborts(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	target := extractHeader(t, path)
	target["SeriesDescription"] = "renamed series"
	before := readBytes(t, path)

	metrics := &recordingMetrics{}
	u := NewUpdater([]string{path}, target, Options{Metrics: metrics, ScratchDir: t.TempDir()})
	u.roundTrip = func(path string, cfg SaveConfig, updates map[string]any) error {
		if _, ok := updates["SeriesDescription"]; ok {
			return fmt.Errorf("injected encode failure")
		}
		return nil
	}

	_, err := u.Update()
	require.ErrorIs(t, err, ErrNoUsableResult)
	assert.Equal(t, 1, metrics.verifyFails)
	assert.Equal(t, 0, metrics.updated)
	assert.Equal(t, before, readBytes(t, path), "failed verification must not touch the file")
}

func TestUpdaterNoSaveConfig(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(nil))
	target := extractHeader(t, path)
	target["SeriesDescription"] = "renamed series"

	u := NewUpdater([]string{path}, target, Options{ScratchDir: t.TempDir()})
	u.roundTrip = func(string, SaveConfig, map[string]any) error {
		return fmt.Errorf("injected decode failure")
	}

	_, err := u.Update()
	assert.ErrorIs(t, err, ErrNoUsableResult)
}

func TestUpdaterNonUniformTagNotInserted(t *testing.T) {
	dir := t.TempDir()
	first := newTestDICOM(t, dir, "1.dcm", seriesElements(map[string]any{
		"InstanceNumber": []string{"1"},
	}))
	second := newTestDICOM(t, dir, "2.dcm", seriesElements(map[string]any{
		"InstanceNumber": []string{"2"},
	}))

	target := extractHeader(t, first)
	require.Equal(t, 1, target["InstanceNumber"])

	u := NewUpdater([]string{first, second}, target, Options{ScratchDir: t.TempDir()})

	assert.NotContains(t, u.CommonHeader(), "InstanceNumber")
	assert.NotContains(t, u.UpdateSet(), "InstanceNumber",
		"a per-instance value must never be written uniformly across the set")

	updated, err := u.Update()
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, updated)
	assert.Equal(t, 2, extractHeader(t, second)["InstanceNumber"], "second file keeps its own value")
}

func TestUpdaterExcludesNonEditableVRs(t *testing.T) {
	dir := t.TempDir()
	path := newTestDICOM(t, dir, "a.dcm", seriesElements(map[string]any{
		"SOPInstanceUID": []string{"1.2.3.4.5.6.1"},
	}))

	target := extractHeader(t, path)
	target["SOPInstanceUID"] = "1.2.3.4.5.6.2"
	target["SeriesDescription"] = "renamed series"

	u := NewUpdater([]string{path}, target, Options{ScratchDir: t.TempDir()})
	updates := u.UpdateSet()

	assert.NotContains(t, updates, "SOPInstanceUID", "UI is not an editable VR")
	assert.Equal(t, "renamed series", updates["SeriesDescription"])
}

func TestUpdaterNonDICOMPaths(t *testing.T) {
	dir := t.TempDir()
	good := newTestDICOM(t, dir, "good.dcm", seriesElements(nil))
	junk := filepath.Join(dir, "junk.txt")
	require.NoError(t, os.WriteFile(junk, []byte("not dicom"), 0o644))

	u := NewUpdater([]string{good, junk}, header.Dict{}, Options{ScratchDir: t.TempDir()})
	assert.Equal(t, []string{junk}, u.NonDICOMPaths())
}
