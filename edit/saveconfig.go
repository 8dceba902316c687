// Package edit writes approved header diffs back into DICOM files. Every
// write is speculatively verified against a disposable scratch file before
// anything touches the real artifact; a file either takes its whole update or
// none of it.
package edit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// SaveConfig names one decode/encode configuration variant. Variants are
// tried in order, most strict first; the first one that round-trips a file is
// cached and reused for that file's verification and commit.
type SaveConfig struct {
	Name         string
	ParseOptions []dicom.ParseOption
	WriteOptions []dicom.WriteOption
}

// SaveConfigs returns the ordered list of increasingly permissive variants.
func SaveConfigs() []SaveConfig {
	return []SaveConfig{
		{Name: "strict"},
		{
			Name:         "skip-vr-verification",
			WriteOptions: []dicom.WriteOption{dicom.SkipVRVerification()},
		},
		{
			Name:         "permissive",
			ParseOptions: []dicom.ParseOption{dicom.SkipMetadataReadOnNewParserInit()},
			WriteOptions: []dicom.WriteOption{
				dicom.SkipVRVerification(),
				dicom.SkipValueTypeVerification(),
			},
		},
	}
}

// ErrNoSaveConfig marks a file that no supported configuration can open and
// round-trip at all.
var ErrNoSaveConfig = errors.New("no save configuration can round-trip file")

// roundTrip decodes the file under cfg, applies updates, and encodes the
// result to a throw-away scratch destination, never the real file. A nil or
// empty updates map probes plain writability.
func roundTrip(path string, cfg SaveConfig, updates map[string]any, scratchDir string) error {
	ds, err := dicom.ParseFile(path, nil, cfg.ParseOptions...)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	for keyword, value := range updates {
		if err := setElement(&ds, keyword, value); err != nil {
			return err
		}
	}
	scratch := filepath.Join(scratchDir, uuid.NewString()+".dcm")
	out, err := os.Create(scratch)
	if err != nil {
		return fmt.Errorf("creating scratch file: %w", err)
	}
	defer os.Remove(scratch)
	defer out.Close()

	sortElements(&ds)
	if err := dicom.Write(out, ds, cfg.WriteOptions...); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// sortElements restores ascending tag order after insertions.
func sortElements(ds *dicom.Dataset) {
	sort.SliceStable(ds.Elements, func(i, j int) bool {
		return lessTag(ds.Elements[i].Tag, ds.Elements[j].Tag)
	})
}

func lessTag(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}
