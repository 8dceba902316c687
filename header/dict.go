// Package header extracts DICOM file headers into normalized key→value
// dictionaries. A value is a scalar (string, int, float64), an ordered list
// of scalars ([]any), or an ordered list of nested dictionaries ([]Dict) for
// sequence groups.
package header

import (
	"reflect"
	"sort"
)

// Dict is a normalized header: tag keyword to value.
type Dict map[string]any

// Keys returns the keywords in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the dictionary.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = cloneValue(item)
		}
		return list
	case []Dict:
		items := make([]Dict, len(val))
		for i, item := range val {
			items[i] = item.Clone()
		}
		return items
	case Dict:
		return val.Clone()
	default:
		return val
	}
}

// Equal reports whether two dictionaries hold equal values for the same keys.
func (d Dict) Equal(other Dict) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !ValueEqual(v, ov) {
			return false
		}
	}
	return true
}

// FromRaw converts already-decoded JSON-like data (map[string]any with nested
// maps and []any) into a Dict, turning sequence items into nested Dicts.
// Target headers sourced from the external metadata store arrive this way.
func FromRaw(raw map[string]any) Dict {
	d := make(Dict, len(raw))
	for k, v := range raw {
		d[k] = fromRawValue(v)
	}
	return d
}

func fromRawValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return FromRaw(val)
	case []any:
		if items, ok := rawSequence(val); ok {
			return items
		}
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = fromRawValue(item)
		}
		return list
	default:
		return v
	}
}

// rawSequence converts a list whose members are all maps into []Dict.
func rawSequence(list []any) ([]Dict, bool) {
	if len(list) == 0 {
		return nil, false
	}
	items := make([]Dict, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		items[i] = FromRaw(m)
	}
	return items, true
}

// ValueEqual reports whether two header values are equal. Numeric scalars
// compare across int and float representations because target headers decoded
// from JSON carry all numbers as float64.
func ValueEqual(a, b any) bool {
	switch av := a.(type) {
	case Dict:
		bv, ok := b.(Dict)
		return ok && av.Equal(bv)
	case []Dict:
		bv, ok := b.([]Dict)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a, b)
	}
}

func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	if as, ok := a.(string); ok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ScalarListEquivalent reports whether one value is a bare scalar and the
// other a one-element list holding an equal scalar. Older externally stored
// headers used the bare representation for multi-valued keywords.
func ScalarListEquivalent(a, b any) bool {
	return scalarWrapsTo(a, b) || scalarWrapsTo(b, a)
}

func scalarWrapsTo(scalar, list any) bool {
	l, ok := list.([]any)
	if !ok || len(l) != 1 {
		return false
	}
	if _, isList := scalar.([]any); isList {
		return false
	}
	if _, isSeq := scalar.([]Dict); isSeq {
		return false
	}
	return scalarEqual(scalar, l[0])
}
