package header

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/radstack/dicomsync/dicomtag"
)

// maxStringLength caps the length of a single string element carried into a
// header dictionary. Longer values are vendor blobs, not metadata.
const maxStringLength = 10240

// formatString scrubs a raw string value: non-ASCII and non-printable
// characters are removed, and a result consisting solely of "?" is treated
// as absent.
func formatString(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r > 0x7f {
			continue
		}
		if r >= 0x20 && r != 0x7f || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "?" {
		return "", false
	}
	return out, true
}

// assignScalar coerces a raw string value: int, else float, else scrubbed
// string. The boolean is false when the value normalizes to absent.
func assignScalar(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, true
	}
	out, ok := formatString(s)
	if !ok || out == "" {
		return nil, false
	}
	return out, true
}

// assignList coerces a raw multi-valued string element: element-wise float,
// falling back to element-wise int, falling back to scrubbed strings with
// empties dropped.
func assignList(vals []string) ([]any, bool) {
	floats := make([]any, len(vals))
	allFloat := true
	for i, s := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			allFloat = false
			break
		}
		floats[i] = f
	}
	if allFloat {
		return floats, len(floats) > 0
	}

	ints := make([]any, len(vals))
	allInt := true
	for i, s := range vals {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			allInt = false
			break
		}
		ints[i] = n
	}
	if allInt {
		return ints, len(ints) > 0
	}

	out := make([]any, 0, len(vals))
	for _, s := range vals {
		formatted, ok := formatString(s)
		if !ok || formatted == "" {
			continue
		}
		out = append(out, formatted)
	}
	return out, len(out) > 0
}

// rejoinSingleVM collapses a multi-valued raw string element back into one
// string for keywords whose VM is exactly one and whose VR forbids the value
// delimiter as data. A literal backslash inside such an element is data that
// the decoder misread as a list separator.
func rejoinSingleVM(rule dicomtag.Rule, vals []string) []string {
	if len(vals) <= 1 {
		return vals
	}
	if !dicomtag.SingleValued(rule.VM) || !dicomtag.RejoinableVR(rule.VR) {
		return vals
	}
	return []string{strings.Join(vals, dicomtag.ValueDelimiter)}
}

// rejoinStringList collapses a list of two or more strings stored under a
// single-valued keyword back into one delimiter-joined string.
func rejoinStringList(rule dicomtag.Rule, val any) (string, bool) {
	if !dicomtag.RejoinableVR(rule.VR) {
		return "", false
	}
	list, ok := val.([]any)
	if !ok || len(list) < 2 {
		return "", false
	}
	parts := make([]string, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, dicomtag.ValueDelimiter), true
}

// NormalizeVM enforces each keyword's value multiplicity in place: a
// multi-valued keyword whose value arrived as a bare scalar is wrapped into a
// one-element list, and sequence values are normalized recursively. Keywords
// unknown to the dictionary are left untouched and counted in a warning.
func NormalizeVM(d Dict, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	unknown := 0
	for key, val := range d {
		rule, ok := dicomtag.Lookup(key)
		if !ok {
			unknown++
			continue
		}
		if dicomtag.IsSequence(rule.VR) {
			if items, ok := val.([]Dict); ok {
				for _, item := range items {
					NormalizeVM(item, logger)
				}
			}
			continue
		}
		if dicomtag.SingleValued(rule.VM) {
			// The inverse correction: a single-valued keyword stored as a
			// string list is one value that was split on the delimiter.
			if joined, ok := rejoinStringList(rule, val); ok {
				d[key] = joined
			}
			continue
		}
		switch val.(type) {
		case []any, []Dict:
		default:
			d[key] = []any{val}
		}
	}
	if unknown > 0 {
		logger.Warn("data elements were not type fixed based on VM", slog.Int("count", unknown))
	}
}
