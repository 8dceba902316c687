package header

import "log/slog"

// InstanceKeys are the instance-identifying fields used for directed matching
// of one logical instance within a file set.
var InstanceKeys = []string{
	"SOPInstanceUID",
	"SliceLocation",
	"ContentTime",
	"InstanceCreationTime",
	"InstanceNumber",
}

// FindInstance searches candidates in order for the one file whose instance
// fields all equal the target's. Every one of the five fields must be present
// on both sides and equal; there are no partial matches. Returns the path of
// the first exact match.
func (e *Extractor) FindInstance(paths []string, target Dict) (string, bool) {
	for _, key := range InstanceKeys {
		if _, ok := target[key]; !ok {
			e.log.Debug("target header missing instance field", slog.String("keyword", key))
			return "", false
		}
	}
	for _, path := range paths {
		fh := e.ExtractFile(path)
		if fh.ParseErr != nil {
			continue
		}
		if matchesInstance(fh.Header, target) {
			return path, true
		}
	}
	return "", false
}

func matchesInstance(local, target Dict) bool {
	for _, key := range InstanceKeys {
		lv, ok := local[key]
		if !ok {
			return false
		}
		tv := target[key]
		if !ValueEqual(lv, tv) && !ScalarListEquivalent(lv, tv) {
			return false
		}
	}
	return true
}
