package header

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// explicit VR little endian
const testTransferSyntax = "1.2.840.10008.1.2.1"

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
		"TransferSyntaxUID":          []string{testTransferSyntax},
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
		a, b := ds.Elements[i].Tag, ds.Elements[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dicom.Write(f, ds))
}

// newTestDICOM writes a fixture into dir and returns its path.
func newTestDICOM(t *testing.T, dir, name string, elements map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeTestDICOM(t, path, elements)
	return path
}
