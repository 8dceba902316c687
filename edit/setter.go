package edit

import (
	"fmt"
	"strconv"

	"github.com/suyashkumar/dicom"

	"github.com/radstack/dicomsync/dicomtag"
)

// setElement assigns a header value to a dataset, validating the keyword
// against the tag dictionary before any mutation. The element is replaced in
// place when present, appended otherwise.
func setElement(ds *dicom.Dataset, keyword string, value any) error {
	rule, ok := dicomtag.Lookup(keyword)
	if !ok {
		return fmt.Errorf("unknown DICOM keyword: %s", keyword)
	}
	data, err := elementData(rule, value)
	if err != nil {
		return fmt.Errorf("value for %s: %w", keyword, err)
	}
	el, err := dicom.NewElement(rule.Tag, data)
	if err != nil {
		return fmt.Errorf("building element %s: %w", keyword, err)
	}
	for i, existing := range ds.Elements {
		if existing.Tag == rule.Tag {
			ds.Elements[i] = el
			return nil
		}
	}
	ds.Elements = append(ds.Elements, el)
	return nil
}

// elementData converts a normalized header value into the slice type the
// encoder expects for the keyword's VR.
func elementData(rule dicomtag.Rule, value any) (any, error) {
	scalars, ok := value.([]any)
	if !ok {
		scalars = []any{value}
	}
	switch {
	case dicomtag.IsSequence(rule.VR):
		return nil, fmt.Errorf("sequence VR is not writable")
	case dicomtag.IsIntVR(rule.VR):
		out := make([]int, len(scalars))
		for i, s := range scalars {
			n, err := toInt(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case dicomtag.IsFloatVR(rule.VR):
		out := make([]float64, len(scalars))
		for i, s := range scalars {
			f, err := toFloat(s)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		out := make([]string, len(scalars))
		for i, s := range scalars {
			out[i] = toString(s)
		}
		return out, nil
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
