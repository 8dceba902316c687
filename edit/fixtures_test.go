package edit

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustTag(t *testing.T, keyword string) tag.Tag {
	t.Helper()
	info, err := tag.FindByName(keyword)
	require.NoError(t, err, "keyword %s", keyword)
	return info.Tag
}

// writeTestDICOM writes a minimal valid DICOM file containing the given
// keyword→data elements plus the file meta group. Data values use the raw
// decoder representation ([]string, []int).
func writeTestDICOM(t *testing.T, path string, elements map[string]any) {
	t.Helper()

	all := map[string]any{
		"MediaStorageSOPClassUID":    []string{"1.2.840.10008.5.1.4.1.1.4"},
		"MediaStorageSOPInstanceUID": []string{"1.2.3.4.5.6.1"},
		"TransferSyntaxUID":          []string{"1.2.840.10008.1.2.1"},
	}
	for k, v := range elements {
		all[k] = v
	}

	ds := dicom.Dataset{}
	for keyword, data := range all {
		el, err := dicom.NewElement(mustTag(t, keyword), data)
		require.NoError(t, err, "element %s", keyword)
		ds.Elements = append(ds.Elements, el)
	}
	sort.Slice(ds.Elements, func(i, j int) bool {
		return lessTag(ds.Elements[i].Tag, ds.Elements[j].Tag)
	})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dicom.Write(f, ds))
}

func newTestDICOM(t *testing.T, dir, name string, elements map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeTestDICOM(t, path, elements)
	return path
}

// seriesElements is a base element set shared by fixture files in one series.
func seriesElements(extra map[string]any) map[string]any {
	base := map[string]any{
		"Modality":          []string{"MR"},
		"PatientID":         []string{"patient-1"},
		"PatientName":       []string{"Doe^Jane"},
		"SeriesInstanceUID": []string{"1.2.3.4.5"},
		"StudyDate":         []string{"20240115"},
		"SeriesDescription": []string{"ax t1"},
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// recordingMetrics captures counter increments for assertions.
type recordingMetrics struct {
	updated       int
	verifyFails   int
	commitFails   int
	unsafeReasons []string
}

func (m *recordingMetrics) IncFilesUpdated()         { m.updated++ }
func (m *recordingMetrics) IncVerificationFailures() { m.verifyFails++ }
func (m *recordingMetrics) IncCommitFailures()       { m.commitFails++ }
func (m *recordingMetrics) IncUnsafeVerdicts(reason string) {
	m.unsafeReasons = append(m.unsafeReasons, reason)
}
